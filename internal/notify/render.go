package notify

import (
	"context"
	"fmt"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	"github.com/calloway-labs/dispatch-backend/pkg/textgen"
)

const renderSystemPrompt = "You write one-sentence delivery status updates for customers. " +
	"Be brief, warm, and concrete. Never invent details, never promise delivery times, " +
	"and never mention internal identifiers."

// TextGenRenderer phrases notifications through the chat completions API.
type TextGenRenderer struct {
	client *textgen.Client
}

// NewTextGenRenderer builds a renderer backed by the given client.
func NewTextGenRenderer(client *textgen.Client) (*TextGenRenderer, error) {
	if client == nil {
		return nil, fmt.Errorf("textgen client required")
	}
	return &TextGenRenderer{client: client}, nil
}

func (r *TextGenRenderer) Render(ctx context.Context, item workitem.WorkItem, kind enums.NotificationKind) (string, error) {
	return r.client.Complete(ctx, renderSystemPrompt, renderPrompt(item, kind))
}

func renderPrompt(item workitem.WorkItem, kind enums.NotificationKind) string {
	switch kind {
	case enums.NotificationKindExhausted:
		return fmt.Sprintf(
			"An order going to %q could not be matched with any driver after %d attempts. "+
				"Tell the customer we could not find a driver and that support will follow up.",
			item.Payload.DropoffAddress, len(item.Assignments),
		)
	default:
		return fmt.Sprintf(
			"An order going to %q was just handed to a new driver after %d reassignments. "+
				"Tell the customer a new driver has been assigned and apologize briefly for the delay.",
			item.Payload.DropoffAddress, item.ReassignmentCount(),
		)
	}
}

// StaticRenderer serves the fallback template table directly. It backs dev
// environments with no text-generation credentials.
type StaticRenderer struct{}

func (StaticRenderer) Render(_ context.Context, item workitem.WorkItem, kind enums.NotificationKind) (string, error) {
	return fallbackMessage(item, kind), nil
}
