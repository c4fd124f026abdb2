// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
)

const (
	// ControlTokenHeader is the header name for control authentication token.
	ControlTokenHeader = "X-Control-Token"
)

// authInterceptor validates the control token on handlers and attaches it on clients.
type authInterceptor struct {
	token string
}

// NewControlAuthInterceptor creates an interceptor that validates control
// tokens from request metadata for unary and streaming calls.
func NewControlAuthInterceptor(token string) connect.Interceptor {
	return &authInterceptor{token: token}
}

// newClientTokenInterceptor creates an interceptor that sends the control token.
func newClientTokenInterceptor(token string) connect.Interceptor {
	return &authInterceptor{token: token}
}

func (a *authInterceptor) valid(token string) bool {
	if token == "" || a.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}

// WrapUnary validates handler calls and decorates client calls.
func (a *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			req.Header().Set(ControlTokenHeader, a.token)
			return next(ctx, req)
		}

		// Validate token
		if !a.valid(req.Header().Get(ControlTokenHeader)) {
			return nil, connect.NewError(connect.CodeUnauthenticated, nil)
		}

		// Call next handler
		return next(ctx, req)
	}
}

// WrapStreamingClient attaches the token to outgoing streams.
func (a *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set(ControlTokenHeader, a.token)
		return conn
	}
}

// WrapStreamingHandler validates incoming streams.
func (a *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if !a.valid(conn.RequestHeader().Get(ControlTokenHeader)) {
			return connect.NewError(connect.CodeUnauthenticated, nil)
		}
		return next(ctx, conn)
	}
}
