package connect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/intake"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/notification"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/playback"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/config"
)

// PlayerServiceName is the fully-qualified name of the player service.
const PlayerServiceName = "spark.player.v1.PlayerService"

// Procedure paths.
const (
	PlayProcedure     = "/" + PlayerServiceName + "/Play"
	ToggleProcedure   = "/" + PlayerServiceName + "/Toggle"
	SkipProcedure     = "/" + PlayerServiceName + "/Skip"
	SkipToProcedure   = "/" + PlayerServiceName + "/SkipTo"
	ShuffleProcedure  = "/" + PlayerServiceName + "/Shuffle"
	ClearProcedure    = "/" + PlayerServiceName + "/Clear"
	LoopProcedure     = "/" + PlayerServiceName + "/Loop"
	PreviousProcedure = "/" + PlayerServiceName + "/Previous"
	LeaveProcedure    = "/" + PlayerServiceName + "/Leave"
	QueueProcedure    = "/" + PlayerServiceName + "/Queue"
	StatusProcedure   = "/" + PlayerServiceName + "/Status"
	WatchProcedure    = "/" + PlayerServiceName + "/Watch"
)

// ErrInvalidSessionID is returned for malformed session ids.
var ErrInvalidSessionID = errors.New("invalid session id")

// Scheduler is the playback surface the service drives.
type Scheduler interface {
	EnqueueMany(ctx context.Context, id snowflake.ID, reqs []track.Request) (playback.EnqueueResult, error)
	Toggle(ctx context.Context, id snowflake.ID) (playback.State, error)
	Skip(ctx context.Context, id snowflake.ID) error
	SkipTo(ctx context.Context, id snowflake.ID, n int) error
	Shuffle(ctx context.Context, id snowflake.ID) error
	Clear(ctx context.Context, id snowflake.ID) (int, error)
	SetLoopMode(ctx context.Context, id snowflake.ID, mode track.LoopMode) error
	CycleLoopMode(ctx context.Context, id snowflake.ID) (track.LoopMode, error)
	Previous(ctx context.Context, id snowflake.ID) error
	PeekQueue(ctx context.Context, id snowflake.ID, n int) ([]track.Request, error)
	Status(ctx context.Context, id snowflake.ID) (playback.Status, error)
	Leave(ctx context.Context, id snowflake.ID) error
}

// Router turns user input into requests.
type Router interface {
	Route(ctx context.Context, input string) (intake.Result, error)
}

// PlayerService implements the player control RPCs.
type PlayerService struct {
	scheduler Scheduler
	router    Router
	notifier  *notification.Manager
	config    *config.Config
	done      <-chan struct{}
}

// NewPlayerService creates a new PlayerService. Watch streams end when done is closed.
func NewPlayerService(scheduler Scheduler, router Router, notifier *notification.Manager, cfg *config.Config, done <-chan struct{}) *PlayerService {
	return &PlayerService{
		scheduler: scheduler,
		router:    router,
		notifier:  notifier,
		config:    cfg,
		done:      done,
	}
}

// NewPlayerServiceHandler builds an HTTP handler for every procedure of svc.
// It returns the path prefix to mount it on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, svc.Play, opts...))
	mux.Handle(ToggleProcedure, connect.NewUnaryHandler(ToggleProcedure, svc.Toggle, opts...))
	mux.Handle(SkipProcedure, connect.NewUnaryHandler(SkipProcedure, svc.Skip, opts...))
	mux.Handle(SkipToProcedure, connect.NewUnaryHandler(SkipToProcedure, svc.SkipTo, opts...))
	mux.Handle(ShuffleProcedure, connect.NewUnaryHandler(ShuffleProcedure, svc.Shuffle, opts...))
	mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, svc.Clear, opts...))
	mux.Handle(LoopProcedure, connect.NewUnaryHandler(LoopProcedure, svc.Loop, opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, svc.Previous, opts...))
	mux.Handle(LeaveProcedure, connect.NewUnaryHandler(LeaveProcedure, svc.Leave, opts...))
	mux.Handle(QueueProcedure, connect.NewUnaryHandler(QueueProcedure, svc.Queue, opts...))
	mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, svc.Status, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.Watch, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// parseSessionID parses a session id. Empty input is rejected.
func parseSessionID(s string) (snowflake.ID, error) {
	id, err := snowflake.Parse(s)
	if err != nil || id == 0 {
		return 0, connect.NewError(connect.CodeInvalidArgument, errors.Wrapf(ErrInvalidSessionID, "%q", s))
	}
	return id, nil
}

// errorCode maps intake and scheduler errors to message codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, intake.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, intake.ErrSpotifyDisabled):
		return "spotify_disabled"
	default:
		return playback.ErrorCode(err)
	}
}

// result converts an intake or scheduler error into a response result.
func (s *PlayerService) result(err error) Result {
	code := errorCode(err)
	if err == nil {
		return Result{Success: true, Code: code, Message: s.config.GetMessage(code)}
	}
	msg := s.config.GetMessage(code)
	if code == "default_error" {
		msg += ": " + err.Error()
	}
	return Result{Success: false, Code: code, Message: msg}
}

// Play handles track and collection requests.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[PlayRequest],
) (*connect.Response[PlayResponse], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	routed, err := s.router.Route(ctx, req.Msg.Input)
	if err != nil {
		zlog.Info().Msgf("play rejected: session=%s input=%q err=%v", id, req.Msg.Input, err)
		return connect.NewResponse(&PlayResponse{Result: s.result(err)}), nil
	}

	res, err := s.scheduler.EnqueueMany(ctx, id, routed.Requests)
	resp := &PlayResponse{
		Result:   s.result(err),
		Route:    routed.Route.String(),
		Name:     routed.Name,
		Added:    res.Added,
		Position: res.Position,
		Started:  res.Started,
	}
	return connect.NewResponse(resp), nil
}

// Toggle pauses or resumes playback.
func (s *PlayerService) Toggle(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[ToggleResponse], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	state, err := s.scheduler.Toggle(ctx, id)
	resp := &ToggleResponse{Result: s.result(err)}
	if err == nil {
		resp.State = state.String()
	}
	return connect.NewResponse(resp), nil
}

// Skip ends the current track.
func (s *PlayerService) Skip(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[Ack], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&Ack{Result: s.result(s.scheduler.Skip(ctx, id))}), nil
}

// SkipTo jumps to a queue position.
func (s *PlayerService) SkipTo(
	ctx context.Context,
	req *connect.Request[SkipToRequest],
) (*connect.Response[Ack], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&Ack{Result: s.result(s.scheduler.SkipTo(ctx, id, req.Msg.Position))}), nil
}

// Shuffle shuffles the queue.
func (s *PlayerService) Shuffle(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[Ack], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&Ack{Result: s.result(s.scheduler.Shuffle(ctx, id))}), nil
}

// Clear empties the queue.
func (s *PlayerService) Clear(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[ClearResponse], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	n, err := s.scheduler.Clear(ctx, id)
	return connect.NewResponse(&ClearResponse{Result: s.result(err), Removed: n}), nil
}

// Loop sets or cycles the loop mode.
func (s *PlayerService) Loop(
	ctx context.Context,
	req *connect.Request[LoopRequest],
) (*connect.Response[LoopResponse], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	if req.Msg.Mode == "" {
		mode, err := s.scheduler.CycleLoopMode(ctx, id)
		if err != nil {
			return connect.NewResponse(&LoopResponse{Result: s.result(err)}), nil
		}
		return connect.NewResponse(&LoopResponse{Result: s.result(nil), Mode: mode.String()}), nil
	}

	mode, err := track.ParseLoopMode(req.Msg.Mode)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.scheduler.SetLoopMode(ctx, id, mode); err != nil {
		return connect.NewResponse(&LoopResponse{Result: s.result(err)}), nil
	}
	return connect.NewResponse(&LoopResponse{Result: s.result(nil), Mode: mode.String()}), nil
}

// Previous replays the previous track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[Ack], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&Ack{Result: s.result(s.scheduler.Previous(ctx, id))}), nil
}

// Leave stops playback and closes the session.
func (s *PlayerService) Leave(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[Ack], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	err = s.scheduler.Leave(ctx, id)
	if err == nil {
		s.notifier.Forget(id)
	}
	return connect.NewResponse(&Ack{Result: s.result(err)}), nil
}

// Queue lists upcoming entries.
func (s *PlayerService) Queue(
	ctx context.Context,
	req *connect.Request[QueueRequest],
) (*connect.Response[QueueResponse], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	entries, err := s.scheduler.PeekQueue(ctx, id, req.Msg.Limit)
	resp := &QueueResponse{Result: s.result(err)}
	for i, e := range entries {
		resp.Entries = append(resp.Entries, QueueEntry{
			Position: i + 1,
			Title:    e.Title(),
			Query:    e.Query,
		})
	}
	return connect.NewResponse(resp), nil
}

// Status returns the session status and its recent diagnostics.
func (s *PlayerService) Status(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StatusResponse], error) {
	id, err := parseSessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	st, err := s.scheduler.Status(ctx, id)
	if err != nil {
		return connect.NewResponse(&StatusResponse{Result: s.result(err)}), nil
	}
	return connect.NewResponse(s.statusResponse(st, id)), nil
}

func (s *PlayerService) statusResponse(st playback.Status, id snowflake.ID) *StatusResponse {
	resp := &StatusResponse{
		Result:      s.result(nil),
		State:       st.State.String(),
		Loop:        st.Loop.String(),
		Title:       st.Title,
		ElapsedMs:   st.Elapsed.Milliseconds(),
		DurationMs:  st.Duration.Milliseconds(),
		QueueLength: st.QueueLength,
		Logs:        s.notifier.RecentLogs(id),
	}
	if st.Current != nil {
		resp.Current = st.Current.Title()
	}
	return resp
}

// Watch streams captions and events for a session. An empty session id
// watches every session.
func (s *PlayerService) Watch(
	ctx context.Context,
	req *connect.Request[SessionRequest],
	stream *connect.ServerStream[notification.Notification],
) error {
	var id snowflake.ID
	if req.Msg.SessionID != "" {
		var err error
		if id, err = parseSessionID(req.Msg.SessionID); err != nil {
			return err
		}
	}

	adapter := &notificationStreamAdapter{stream: stream}

	// 1. 現在の状態を初期通知として送信
	if id != 0 {
		initial := &notification.Notification{
			Kind:      notification.KindEvent,
			SessionID: id,
			Time:      time.Now(),
			Event:     &notification.EventBody{Type: "initial_state", State: playback.StateIdle.String()},
		}
		if st, err := s.scheduler.Status(ctx, id); err == nil {
			initial.Event.State = st.State.String()
			initial.Event.Title = st.Title
			initial.Event.DurationMs = st.Duration.Milliseconds()
			if st.Current != nil {
				initial.Event.Entry = st.Current.Title()
			}
		}
		if err := adapter.Send(initial); err != nil {
			return err
		}
	}

	// 2. 通常の通知ストリームを開始
	subscriptionID := s.notifier.Subscribe(id, adapter)
	defer s.notifier.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("watch started: session=%s subscription=%s", id, subscriptionID)

	// Wait for context cancellation or server shutdown
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(n)
}
