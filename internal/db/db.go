package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade; consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	ListStore
	Counter
	Transactor
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
}

// ListStore provides list operations.
type ListStore interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Counter provides atomic counters.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// Transactor runs a group of writes atomically.
type Transactor interface {
	// Exec applies cmds inside MULTI/EXEC. Either every command is applied or
	// none is.
	Exec(ctx context.Context, cmds []TxCommand) error
}

// TxKind selects the command a TxCommand issues.
type TxKind int

// Transaction command kinds.
const (
	TxHSet TxKind = iota
	TxRPush
	TxLTrim
)

// TxCommand is one write queued inside a transaction.
type TxCommand struct {
	Kind   TxKind
	Key    string
	Fields map[string]string
	Values []string
	Start  int64
	Stop   int64
}

// HSetCmd queues HSET key fields.
func HSetCmd(key string, fields map[string]string) TxCommand {
	return TxCommand{Kind: TxHSet, Key: key, Fields: fields}
}

// RPushCmd queues RPUSH key values.
func RPushCmd(key string, values ...string) TxCommand {
	return TxCommand{Kind: TxRPush, Key: key, Values: values}
}

// LTrimCmd queues LTRIM key start stop.
func LTrimCmd(key string, start, stop int64) TxCommand {
	return TxCommand{Kind: TxLTrim, Key: key, Start: start, Stop: stop}
}
