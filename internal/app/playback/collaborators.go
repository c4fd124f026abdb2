package playback

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/render"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// TrackResolver turns a query or link into a playable track.
type TrackResolver interface {
	Resolve(ctx context.Context, query string) (*track.Resolved, error)
}

// Sink is a voice output bound to one session.
// onEnd must be called exactly once per Play, from any goroutine other than
// the one calling Play or Stop.
type Sink interface {
	Play(t *track.Resolved, onEnd func()) error
	Pause() error
	Resume() error
	Stop() error
	IsPlaying() bool
	IsPaused() bool
	IsConnected() bool
	Disconnect() error
}

// SinkConnector opens a sink for a session.
type SinkConnector interface {
	Connect(ctx context.Context, sessionID snowflake.ID) (Sink, error)
}

// LyricsResolver finds a caption track for a title.
type LyricsResolver interface {
	Resolve(ctx context.Context, primary, fallback string) lyrics.Result
}

// CaptionRunner runs the caption loop for one playback until it ends.
type CaptionRunner interface {
	Run(ctx context.Context, job render.Job)
}

// TargetOpener opens the output a session's captions are rendered to.
type TargetOpener interface {
	Open(ctx context.Context, sessionID snowflake.ID, title string) (render.Target, error)
}

// LogSink records diagnostic lines for a session. Best effort.
type LogSink interface {
	Record(sessionID snowflake.ID, event string)
}
