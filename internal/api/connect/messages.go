package connect

// Result is embedded in every unary response.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionRequest addresses a session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// PlayRequest enqueues a query or link.
type PlayRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

// PlayResponse reports what was enqueued.
type PlayResponse struct {
	Result
	Route    string `json:"route,omitempty"`
	Name     string `json:"name,omitempty"`
	Added    int    `json:"added"`
	Position int    `json:"position"`
	Started  bool   `json:"started"`
}

// SkipToRequest jumps to a 1-based queue position.
type SkipToRequest struct {
	SessionID string `json:"session_id"`
	Position  int    `json:"position"`
}

// LoopRequest sets the loop mode. An empty mode cycles to the next one.
type LoopRequest struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode,omitempty"`
}

// QueueRequest lists upcoming entries. Limit zero lists all.
type QueueRequest struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
}

// Ack is the response of operations with no payload.
type Ack struct {
	Result
}

// ToggleResponse reports the state after toggling.
type ToggleResponse struct {
	Result
	State string `json:"state,omitempty"`
}

// ClearResponse reports how many entries were removed.
type ClearResponse struct {
	Result
	Removed int `json:"removed"`
}

// LoopResponse reports the loop mode now in effect.
type LoopResponse struct {
	Result
	Mode string `json:"mode,omitempty"`
}

// QueueEntry is one upcoming request.
type QueueEntry struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Query    string `json:"query"`
}

// QueueResponse lists upcoming entries in play order.
type QueueResponse struct {
	Result
	Entries []QueueEntry `json:"entries,omitempty"`
}

// StatusResponse reports a session's playback status.
type StatusResponse struct {
	Result
	State       string   `json:"state,omitempty"`
	Loop        string   `json:"loop,omitempty"`
	Current     string   `json:"current,omitempty"`
	Title       string   `json:"title,omitempty"`
	ElapsedMs   int64    `json:"elapsed_ms"`
	DurationMs  int64    `json:"duration_ms"`
	QueueLength int      `json:"queue_length"`
	Logs        []string `json:"logs,omitempty"`
}
