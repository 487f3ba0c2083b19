package enums

import "fmt"

// WorkItemStatus tracks the lifecycle of a dispatch work item.
type WorkItemStatus string

const (
	WorkItemStatusPending   WorkItemStatus = "pending"
	WorkItemStatusAccepted  WorkItemStatus = "accepted"
	WorkItemStatusCompleted WorkItemStatus = "completed"
	WorkItemStatusTimedOut  WorkItemStatus = "timed_out"
	WorkItemStatusCancelled WorkItemStatus = "cancelled"
)

var validWorkItemStatuses = []WorkItemStatus{
	WorkItemStatusPending,
	WorkItemStatusAccepted,
	WorkItemStatusCompleted,
	WorkItemStatusTimedOut,
	WorkItemStatusCancelled,
}

// IsValid checks whether the given status matches the canonical enum.
func (s WorkItemStatus) IsValid() bool {
	for _, candidate := range validWorkItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further assignments may be appended.
func (s WorkItemStatus) Terminal() bool {
	return s != WorkItemStatusPending
}

// ParseWorkItemStatus converts raw strings into WorkItemStatus.
func ParseWorkItemStatus(value string) (WorkItemStatus, error) {
	for _, candidate := range validWorkItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid work item status %q", value)
}
