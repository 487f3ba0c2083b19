package enums

// ReassignmentReason records why an open offer moved to the next candidate.
type ReassignmentReason string

const (
	ReassignmentReasonTimeout   ReassignmentReason = "timeout"
	ReassignmentReasonRejection ReassignmentReason = "rejection"
)

// IsValid checks whether the given reason matches the canonical enum.
func (r ReassignmentReason) IsValid() bool {
	return r == ReassignmentReasonTimeout || r == ReassignmentReasonRejection
}
