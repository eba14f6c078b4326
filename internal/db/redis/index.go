package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/whatmovie/internal/db"
)

// CreateIndex runs FT.CREATE for def.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex runs FT.DROPINDEX; deleteDocs adds DD so the movie hashes go too.
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs {
		args = append(args, "DD")
	}
	if err := s.do(ctx, s.b().Arbitrary("FT.DROPINDEX").Args(args...).Build()).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists asks FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isRedisErr(err, "unknown index name"):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
}

// SupportsTextSearch is always true on Redis 8, whose Query Engine scores TEXT fields with BM25.
func (s *Store) SupportsTextSearch(context.Context) bool {
	return true
}

// createArgs renders FT.CREATE arguments:
// name ON HASH PREFIX 1 prefix SCHEMA field kind [options]...
func createArgs(def *db.IndexDefinition) []string {
	args := []string{def.Name, "ON", "HASH", "PREFIX", "1", def.Prefix, "SCHEMA"}
	for i := range def.Fields {
		args = append(args, fieldArgs(&def.Fields[i])...)
	}
	return args
}

func fieldArgs(f *db.IndexField) []string {
	out := []string{f.Name, string(f.Kind)}
	switch f.Kind {
	case db.KindText:
		if f.Weight > 0 {
			out = append(out, "WEIGHT", strconv.FormatFloat(f.Weight, 'f', -1, 64))
		}
	case db.KindTag:
		if f.Separator != "" {
			out = append(out, "SEPARATOR", f.Separator)
		}
	case db.KindVector:
		attrs := []string{
			"TYPE", "FLOAT32",
			"DIM", strconv.Itoa(f.Vector.Dim),
			"DISTANCE_METRIC", string(f.Vector.Distance),
		}
		if f.Vector.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.Vector.M))
		}
		if f.Vector.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.Vector.EFConstruction))
		}
		out = append(out, "HNSW", strconv.Itoa(len(attrs)))
		out = append(out, attrs...)
	}
	return out
}
