package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/logtmpl/internal/db"
)

// Exec sends MULTI, the queued commands and EXEC in one DoMulti round-trip.
// All keys must live on one node; cluster deployments need a hash-tagged key
// prefix.
func (s *Store) Exec(ctx context.Context, cmds []db.TxCommand) error {
	if len(cmds) == 0 {
		return nil
	}

	batch := make([]rueidis.Completed, 0, len(cmds)+2)
	batch = append(batch, s.b().Multi().Build())
	for _, c := range cmds {
		built, err := s.txCommand(c)
		if err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		batch = append(batch, built)
	}
	batch = append(batch, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, batch...)

	// MULTI and the QUEUED replies: a failure here means EXEC was discarded.
	for _, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
	}

	exec := results[len(results)-1]
	replies, err := exec.ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return &db.Error{Op: db.OpExec, Err: db.ErrTxAborted}
		}
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for i, r := range replies {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("command %d (%s): %w", i, cmds[i].Key, err)}
		}
	}
	return nil
}

func (s *Store) txCommand(c db.TxCommand) (rueidis.Completed, error) {
	switch c.Kind {
	case db.TxHSet:
		if len(c.Fields) == 0 {
			return rueidis.Completed{}, fmt.Errorf("hset %s: no fields", c.Key)
		}
		return s.hset(c.Key, c.Fields), nil
	case db.TxRPush:
		if len(c.Values) == 0 {
			return rueidis.Completed{}, fmt.Errorf("rpush %s: no values", c.Key)
		}
		return s.b().Rpush().Key(c.Key).Element(c.Values...).Build(), nil
	case db.TxLTrim:
		return s.b().Ltrim().Key(c.Key).Start(c.Start).Stop(c.Stop).Build(), nil
	default:
		return rueidis.Completed{}, fmt.Errorf("unknown tx command kind %d", c.Kind)
	}
}
