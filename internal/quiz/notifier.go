package quiz

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier records green-zone crossings in the operator log. The real
// recipient (the author-program team) is an external collaborator; this is
// the default wiring until that integration is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) NotifyGreen(_ context.Context, c GreenCrossing) error {
	n.Logger.Info().
		Int64("user_id", c.UserID).
		Str("session_id", c.SessionID).
		Int("fear_total", c.FearTotal).
		Int("readiness_total", c.ReadinessTotal).
		Msg("user crossed into the green zone")
	return nil
}
