package httpapi

import "context"

// joinContexts derives from req, keeping its values, and also cancels with
// base's cause once base is done. The returned cancel must be called when
// the handler returns.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(req)
	detach := context.AfterFunc(base, func() {
		cancel(context.Cause(base))
	})
	return ctx, func() {
		detach()
		cancel(context.Canceled)
	}
}
