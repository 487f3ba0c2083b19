package workitem

import "github.com/shopspring/decimal"

// Payload carries the courier-facing order details. The engine never reads
// these fields; they ride along in the snapshot and feed notification text.
type Payload struct {
	PickupAddress  string          `json:"pickup_address"`
	DropoffAddress string          `json:"dropoff_address"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	Notes          string          `json:"notes,omitempty"`
}
