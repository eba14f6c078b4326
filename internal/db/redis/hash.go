package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/whatmovie/internal/db"
)

// HSetMulti writes all hashes in one DoMulti round-trip. Every command is
// sent; the error reports how many failed and the first failing key.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		cmd := s.b().Hset().Key(item.Key).FieldValue()
		for field, value := range item.Fields {
			cmd = cmd.FieldValue(field, value)
		}
		cmds = append(cmds, cmd.Build())
	}

	var (
		failed   int
		firstErr error
	)
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("key %s: %w", items[i].Key, err)
			}
			failed++
		}
	}
	if firstErr != nil {
		return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("%d of %d hashes failed, %w", failed, len(items), firstErr)}
	}
	return nil
}

// HGetAll reads a whole hash; an empty reply means the key is missing.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if len(fields) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return fields, nil
}
