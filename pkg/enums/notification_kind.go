package enums

import "fmt"

// NotificationKind identifies the customer-facing message variants the
// dispatcher can produce.
type NotificationKind string

const (
	NotificationKindReassigned NotificationKind = "reassigned"
	NotificationKindExhausted  NotificationKind = "exhausted"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindReassigned,
	NotificationKindExhausted,
}

// IsValid checks whether the given kind matches the canonical enum.
func (k NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
