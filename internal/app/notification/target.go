package notification

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/render"
)

// Target renders captions for one session as caption notifications.
type Target struct {
	manager   *Manager
	sessionID snowflake.ID
}

// Emit broadcasts a caption frame.
func (t *Target) Emit(ctx context.Context, c render.Caption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.manager.Broadcast(FromCaption(t.sessionID, c))
	return nil
}

// Open returns the caption target for a session.
func (m *Manager) Open(ctx context.Context, sessionID snowflake.ID, title string) (render.Target, error) {
	zlog.Debug().Msgf("caption target opened: session=%s title=%q watchers=%d", sessionID, title, m.SubscriberCount())
	return &Target{manager: m, sessionID: sessionID}, nil
}
