package notification

import (
	"context"
	"log/slog"
)

// LogGateway writes notifications to the log instead of delivering them.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With("module", "notification")}
}

func (g *LogGateway) Notify(ctx context.Context, userID string, kind Kind, data map[string]any) error {
	g.logger.InfoContext(ctx, "notification", "user_id", userID, "kind", kind, "data", data)

	return nil
}
