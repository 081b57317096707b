package event

import "context"

// replayKey marks a context as flowing through Store.Rebuild rather
// than a live Store.Append. Both eventstore and projection already
// import this package, so it's the shared neutral spot for the flag —
// putting it in either package would force the other to import it,
// breaking the one-directional eventstore -> projection dependency
// (spec §4.5).
type replayKey struct{}

// WithReplay marks ctx as a replay context (spec §3 "events are never
// mutated; never deleted except by explicit compaction" — a handler
// reapplying history must not re-append anything already in the log).
func WithReplay(ctx context.Context) context.Context {
	return context.WithValue(ctx, replayKey{}, true)
}

// IsReplay reports whether ctx was marked by WithReplay.
func IsReplay(ctx context.Context) bool {
	v, _ := ctx.Value(replayKey{}).(bool)
	return v
}
