package sheets

import (
	"context"

	"planilla/internal/core"
)

// Ports for outbound adapters.
type (
	// PayoutPublisher writes a week's payout table to a spreadsheet tab.
	PayoutPublisher interface {
		// PublishPayout replaces the tab for the week and returns a range reference.
		PublishPayout(ctx context.Context, s core.WeeklySummary) (ref string, err error)
	}
)
