package notify

import (
	"fmt"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
)

// fallbackMessage returns the fixed template used when rendering fails or
// times out. Delivery must never be blocked on the text-generation API.
func fallbackMessage(item workitem.WorkItem, kind enums.NotificationKind) string {
	switch kind {
	case enums.NotificationKindExhausted:
		return fmt.Sprintf(
			"We could not find a driver for your order %s. Our team has been notified and will follow up shortly.",
			shortID(item),
		)
	default:
		return fmt.Sprintf(
			"Your order %s has been assigned to a new driver. We apologize for the delay.",
			shortID(item),
		)
	}
}

func shortID(item workitem.WorkItem) string {
	id := item.ID.String()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
