package enums

import "fmt"

// AssignmentResponse captures the outcome of a single offer to a candidate.
type AssignmentResponse string

const (
	// AssignmentResponseOffered means the offer is open and awaiting a response.
	AssignmentResponseOffered AssignmentResponse = "offered"
	AssignmentResponseAccepted AssignmentResponse = "accepted"
	AssignmentResponseRejected AssignmentResponse = "rejected"
	AssignmentResponseTimedOut AssignmentResponse = "timed_out"
)

var validAssignmentResponses = []AssignmentResponse{
	AssignmentResponseOffered,
	AssignmentResponseAccepted,
	AssignmentResponseRejected,
	AssignmentResponseTimedOut,
}

// IsValid checks whether the given response matches the canonical enum.
func (r AssignmentResponse) IsValid() bool {
	for _, candidate := range validAssignmentResponses {
		if candidate == r {
			return true
		}
	}
	return false
}

// Open reports whether the assignment is still awaiting a response.
func (r AssignmentResponse) Open() bool {
	return r == AssignmentResponseOffered
}

// ParseAssignmentResponse converts raw strings into AssignmentResponse.
func ParseAssignmentResponse(value string) (AssignmentResponse, error) {
	for _, candidate := range validAssignmentResponses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment response %q", value)
}
