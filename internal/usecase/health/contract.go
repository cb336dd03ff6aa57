package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EngineChecker exposes the streaming engine state: whether the stored
// templates were restored and how many are live.
type EngineChecker interface {
	Loaded() bool
	Len() int
}
