// AngelaMos | 2026
// notifier.go

package notify

import (
	"context"
	"log/slog"
)

// PurchaseNotice carries everything a confirmation email needs.
type PurchaseNotice struct {
	CustomerEmail string
	CustomerName  string
	ProductName   string
	ProductSlug   string
	Amount        float64
	DownloadToken string
}

// Notifier delivers buyer-facing notifications. Calls are fire and
// forget: the purchase pipeline never fails because a notification
// could not be sent.
type Notifier interface {
	PurchaseCompleted(ctx context.Context, notice PurchaseNotice)
}

// LogNotifier is the default implementation: it records the event and
// sends nothing. A real mail provider slots in behind the same
// interface.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PurchaseCompleted(
	ctx context.Context,
	notice PurchaseNotice,
) {
	n.logger.InfoContext(ctx, "purchase confirmation",
		slog.String("email", notice.CustomerEmail),
		slog.String("product", notice.ProductSlug),
		slog.Float64("amount", notice.Amount),
	)
}
