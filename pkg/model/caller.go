package model

import "context"

// Caller identifies who triggered a validation pass.
type Caller struct {
	Username string `json:"username,omitempty"`
	Group    string `json:"group,omitempty"`
}

type callerKey struct{}

// WithCaller returns a context carrying the caller.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom extracts the caller from ctx. The zero Caller is returned when
// none is attached.
func CallerFrom(ctx context.Context) Caller {
	if ctx == nil {
		return Caller{}
	}
	caller, _ := ctx.Value(callerKey{}).(Caller)
	return caller
}
