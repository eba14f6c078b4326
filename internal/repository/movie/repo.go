// Package movie stores cleaned movies as Redis hashes and searches them
// through one FT index carrying both the embedding and the BM25 text.
package movie

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/whatmovie/internal/db"
	"github.com/kailas-cloud/whatmovie/internal/domain"
	dommovie "github.com/kailas-cloud/whatmovie/internal/domain/movie"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

// Hash field names.
const (
	FieldContent     = "__content"
	FieldVector      = "__vector"
	FieldTitle       = "title"
	FieldReleaseDate = "release_date"
	FieldGenres      = "genres"
	FieldCompanies   = "production_companies"
	FieldVoteAverage = "vote_average"
	FieldVoteCount   = "vote_count"
	FieldPopularity  = "popularity"
)

// store is the consumer interface for the movie index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config describes the index layout.
type Config struct {
	IndexName      string
	KeyPrefix      string
	Dimensions     int
	M              int
	EFConstruction int
	EFRuntime      int
	Scorer         string
}

// Stored is a movie as read back from its hash.
type Stored struct {
	ID          string
	Title       string
	ReleaseDate string
	Genres      string
	Content     string
	VoteAverage float64
}

// Repo is the movie index repository.
type Repo struct {
	store store
	cfg   Config
}

// New creates a movie repository.
func New(s store, cfg Config) *Repo {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = domain.DefaultEmbeddingDimensions
	}
	return &Repo{store: s, cfg: cfg}
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.cfg.IndexName }

func (r *Repo) keyPrefix() string {
	return r.cfg.KeyPrefix + "movie:"
}

// Key returns the hash key for a movie ID.
func (r *Repo) Key(id string) string {
	return r.keyPrefix() + id
}

// IndexDefinition builds the FT schema for the movie index. Titles weigh
// double so a description naming the film ranks it first.
func (r *Repo) IndexDefinition() (*db.IndexDefinition, error) {
	def, err := db.NewSchema(r.cfg.IndexName, r.keyPrefix()).
		Text(FieldContent, 0).
		Text(FieldTitle, 2).
		Tag(FieldGenres, ",").
		Numeric(FieldVoteAverage, FieldPopularity).
		Vector(FieldVector, db.HNSW{
			Dim:            r.cfg.Dimensions,
			Distance:       db.Cosine,
			M:              r.cfg.M,
			EFConstruction: r.cfg.EFConstruction,
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("movie index schema: %w", err)
	}
	return def, nil
}

// EnsureIndex creates the index unless it already exists. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	if !r.store.SupportsTextSearch(ctx) {
		return false, domain.ErrKeywordSearchNotSupported
	}

	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return false, nil
	}

	def, err := r.IndexDefinition()
	if err != nil {
		return false, err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return true, nil
}

// DropIndex removes the index; deleteDocs also removes the movie hashes.
func (r *Repo) DropIndex(ctx context.Context, deleteDocs bool) error {
	if err := r.store.DropIndex(ctx, r.cfg.IndexName, deleteDocs); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("drop index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

// UpsertBatch writes movies with their embeddings in one pipeline.
// movies and vectors are parallel slices.
func (r *Repo) UpsertBatch(ctx context.Context, movies []dommovie.Movie, vectors [][]float32) error {
	if len(movies) != len(vectors) {
		return fmt.Errorf("upsert batch: %d movies but %d vectors", len(movies), len(vectors))
	}
	if len(movies) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(movies))
	for i := range movies {
		if len(vectors[i]) != r.cfg.Dimensions {
			return fmt.Errorf("upsert movie %s: vector has %d dimensions, index expects %d",
				movies[i].ID(), len(vectors[i]), r.cfg.Dimensions)
		}
		items[i] = db.HashSetItem{
			Key:    r.Key(movies[i].ID()),
			Fields: movieFields(&movies[i], vectors[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store %d movies: %w", len(items), err)
	}
	return nil
}

// Get reads one stored movie; a missing hash yields db.ErrKeyNotFound.
func (r *Repo) Get(ctx context.Context, id string) (Stored, error) {
	fields, err := r.store.HGetAll(ctx, r.Key(id))
	if err != nil {
		return Stored{}, fmt.Errorf("get movie %s: %w", id, err)
	}
	vote, _ := strconv.ParseFloat(fields[FieldVoteAverage], 64)
	return Stored{
		ID:          id,
		Title:       fields[FieldTitle],
		ReleaseDate: fields[FieldReleaseDate],
		Genres:      fields[FieldGenres],
		Content:     fields[FieldContent],
		VoteAverage: vote,
	}, nil
}

// Count returns the number of indexed movies.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

// SearchKNN returns the k nearest movies to vector, best first.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]result.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  FieldVector,
		Vector:       vector,
		K:            k,
		EFRuntime:    r.cfg.EFRuntime,
		ReturnFields: []string{FieldContent},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}
	return r.toHits(sr), nil
}

// SearchBM25 returns the k best keyword matches for the free-text query.
// A query without searchable terms yields no hits.
func (r *Repo) SearchBM25(ctx context.Context, query string, k int) ([]result.Hit, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.cfg.IndexName,
		TextField:    FieldContent,
		Query:        query,
		Match:        db.MatchAny,
		TopK:         k,
		Scorer:       r.cfg.Scorer,
		ReturnFields: []string{FieldContent},
	})
	if err != nil {
		if errors.Is(err, db.ErrEmptyQuery) {
			return []result.Hit{}, nil
		}
		return nil, fmt.Errorf("search bm25 %s: %w", r.cfg.IndexName, err)
	}
	return r.toHits(sr), nil
}

func (r *Repo) toHits(sr *db.SearchResult) []result.Hit {
	if sr == nil {
		return []result.Hit{}
	}
	prefix := r.keyPrefix()
	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		hits = append(hits, result.NewHit(id, entry.Score, entry.Fields[FieldContent]))
	}
	return hits
}

func movieFields(m *dommovie.Movie, vector []float32) map[string]string {
	return map[string]string{
		FieldContent:     m.Details(),
		FieldVector:      vectorToBytes(vector),
		FieldTitle:       m.Title(),
		FieldReleaseDate: m.ReleaseDate(),
		FieldGenres:      m.Genres(),
		FieldCompanies:   m.ProductionCompanies(),
		FieldVoteAverage: strconv.FormatFloat(m.VoteAverage(), 'f', -1, 64),
		FieldVoteCount:   strconv.FormatFloat(m.VoteCount(), 'f', -1, 64),
		FieldPopularity:  strconv.FormatFloat(m.Popularity(), 'f', -1, 64),
	}
}

// vectorToBytes serializes []float32 as the little-endian FLOAT32 blob the index expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
