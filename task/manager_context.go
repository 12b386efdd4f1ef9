package task

import "context"

type managerCtxKey struct{}

// WithManagerContext stores m in ctx, for handlers further down a call
// chain that want to reach the ambient Manager without it being threaded
// through every function signature.
func WithManagerContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerCtxKey{}, m)
}

// ManagerFromContext retrieves the Manager stored by WithManagerContext,
// or constructs a fresh default Manager if none is present.
func ManagerFromContext(ctx context.Context) *Manager {
	if m, ok := ctx.Value(managerCtxKey{}).(*Manager); ok {
		return m
	}
	return NewManager()
}
