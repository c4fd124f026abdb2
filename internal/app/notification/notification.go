package notification

import (
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/playback"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/render"
)

// Kind represents a notification kind.
type Kind string

const (
	KindCaption Kind = "caption"
	KindEvent   Kind = "event"
	KindLog     Kind = "log"
)

// Notification is one message delivered to session watchers.
type Notification struct {
	SequenceNo uint64       `json:"sequence_no"`
	Kind       Kind         `json:"kind"`
	SessionID  snowflake.ID `json:"session_id"`
	Time       time.Time    `json:"time"`
	Caption    *CaptionBody `json:"caption,omitempty"`
	Event      *EventBody   `json:"event,omitempty"`
	Log        string       `json:"log,omitempty"`
}

// CaptionBody is a rendered caption frame.
type CaptionBody struct {
	Title           string  `json:"title"`
	Original        string  `json:"original,omitempty"`
	Transliteration string  `json:"transliteration,omitempty"`
	Translation     string  `json:"translation,omitempty"`
	Placeholder     string  `json:"placeholder,omitempty"`
	ElapsedMs       int64   `json:"elapsed_ms"`
	DurationMs      int64   `json:"duration_ms"`
	Progress        float64 `json:"progress"`
	Text            string  `json:"text"`
}

// EventBody is a scheduler event.
type EventBody struct {
	Type       string `json:"type"`
	State      string `json:"state"`
	Entry      string `json:"entry,omitempty"`
	Title      string `json:"title,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FromCaption builds a caption notification.
func FromCaption(sessionID snowflake.ID, c render.Caption) *Notification {
	body := &CaptionBody{
		Title:      c.Title,
		ElapsedMs:  c.Elapsed.Milliseconds(),
		DurationMs: c.Duration.Milliseconds(),
		Progress:   c.Progress,
		Text:       c.Text(),
	}
	if c.Placeholder != render.PlaceholderNone {
		body.Placeholder = c.Placeholder.String()
	} else {
		body.Original = c.Line.Original
		body.Transliteration = c.Line.Transliteration
		body.Translation = c.Line.Translation
	}
	return &Notification{
		Kind:      KindCaption,
		SessionID: sessionID,
		Time:      time.Now(),
		Caption:   body,
	}
}

// FromEvent builds an event notification.
func FromEvent(e playback.Event) *Notification {
	body := &EventBody{
		Type:  e.Type.String(),
		State: e.State.String(),
	}
	if e.Entry != nil {
		body.Entry = e.Entry.Title()
	}
	if e.Track != nil {
		body.Title = e.Track.Title
		body.DurationMs = e.Track.Duration.Milliseconds()
	}
	if e.Err != nil {
		body.Error = e.Err.Error()
	}
	return &Notification{
		Kind:      KindEvent,
		SessionID: e.SessionID,
		Time:      time.Now(),
		Event:     body,
	}
}
