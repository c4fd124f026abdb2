package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/notification"
)

// PlayerClient is a client for the player service.
type PlayerClient struct {
	play     *connect.Client[PlayRequest, PlayResponse]
	toggle   *connect.Client[SessionRequest, ToggleResponse]
	skip     *connect.Client[SessionRequest, Ack]
	skipTo   *connect.Client[SkipToRequest, Ack]
	shuffle  *connect.Client[SessionRequest, Ack]
	clear    *connect.Client[SessionRequest, ClearResponse]
	loop     *connect.Client[LoopRequest, LoopResponse]
	previous *connect.Client[SessionRequest, Ack]
	leave    *connect.Client[SessionRequest, Ack]
	queue    *connect.Client[QueueRequest, QueueResponse]
	status   *connect.Client[SessionRequest, StatusResponse]
	watch    *connect.Client[SessionRequest, notification.Notification]
}

// NewPlayerClient creates a client for the player service at baseURL.
func NewPlayerClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *PlayerClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(newClientTokenInterceptor(token)),
	}, opts...)

	return &PlayerClient{
		play:     connect.NewClient[PlayRequest, PlayResponse](httpClient, baseURL+PlayProcedure, opts...),
		toggle:   connect.NewClient[SessionRequest, ToggleResponse](httpClient, baseURL+ToggleProcedure, opts...),
		skip:     connect.NewClient[SessionRequest, Ack](httpClient, baseURL+SkipProcedure, opts...),
		skipTo:   connect.NewClient[SkipToRequest, Ack](httpClient, baseURL+SkipToProcedure, opts...),
		shuffle:  connect.NewClient[SessionRequest, Ack](httpClient, baseURL+ShuffleProcedure, opts...),
		clear:    connect.NewClient[SessionRequest, ClearResponse](httpClient, baseURL+ClearProcedure, opts...),
		loop:     connect.NewClient[LoopRequest, LoopResponse](httpClient, baseURL+LoopProcedure, opts...),
		previous: connect.NewClient[SessionRequest, Ack](httpClient, baseURL+PreviousProcedure, opts...),
		leave:    connect.NewClient[SessionRequest, Ack](httpClient, baseURL+LeaveProcedure, opts...),
		queue:    connect.NewClient[QueueRequest, QueueResponse](httpClient, baseURL+QueueProcedure, opts...),
		status:   connect.NewClient[SessionRequest, StatusResponse](httpClient, baseURL+StatusProcedure, opts...),
		watch:    connect.NewClient[SessionRequest, notification.Notification](httpClient, baseURL+WatchProcedure, opts...),
	}
}

// Play enqueues input.
func (c *PlayerClient) Play(ctx context.Context, req *PlayRequest) (*PlayResponse, error) {
	return unary(ctx, c.play, req)
}

// Toggle pauses or resumes playback.
func (c *PlayerClient) Toggle(ctx context.Context, req *SessionRequest) (*ToggleResponse, error) {
	return unary(ctx, c.toggle, req)
}

// Skip ends the current track.
func (c *PlayerClient) Skip(ctx context.Context, req *SessionRequest) (*Ack, error) {
	return unary(ctx, c.skip, req)
}

// SkipTo jumps to a queue position.
func (c *PlayerClient) SkipTo(ctx context.Context, req *SkipToRequest) (*Ack, error) {
	return unary(ctx, c.skipTo, req)
}

// Shuffle shuffles the queue.
func (c *PlayerClient) Shuffle(ctx context.Context, req *SessionRequest) (*Ack, error) {
	return unary(ctx, c.shuffle, req)
}

// Clear empties the queue.
func (c *PlayerClient) Clear(ctx context.Context, req *SessionRequest) (*ClearResponse, error) {
	return unary(ctx, c.clear, req)
}

// Loop sets or cycles the loop mode.
func (c *PlayerClient) Loop(ctx context.Context, req *LoopRequest) (*LoopResponse, error) {
	return unary(ctx, c.loop, req)
}

// Previous replays the previous track.
func (c *PlayerClient) Previous(ctx context.Context, req *SessionRequest) (*Ack, error) {
	return unary(ctx, c.previous, req)
}

// Leave closes the session.
func (c *PlayerClient) Leave(ctx context.Context, req *SessionRequest) (*Ack, error) {
	return unary(ctx, c.leave, req)
}

// Queue lists upcoming entries.
func (c *PlayerClient) Queue(ctx context.Context, req *QueueRequest) (*QueueResponse, error) {
	return unary(ctx, c.queue, req)
}

// Status returns the session status.
func (c *PlayerClient) Status(ctx context.Context, req *SessionRequest) (*StatusResponse, error) {
	return unary(ctx, c.status, req)
}

// Watch opens a notification stream.
func (c *PlayerClient) Watch(ctx context.Context, req *SessionRequest) (*connect.ServerStreamForClient[notification.Notification], error) {
	return c.watch.CallServerStream(ctx, connect.NewRequest(req))
}

func unary[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
