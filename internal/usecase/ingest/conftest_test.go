package ingest

import (
	"context"
	"sync"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	dommovie "github.com/kailas-cloud/whatmovie/internal/domain/movie"
)

const tmdbHeader = "id,title,vote_average,vote_count,status,release_date,revenue,adult," +
	"overview,popularity,tagline,genres,production_companies,keywords\n"

const tmdbSample = tmdbHeader +
	`27205,Inception,8.364,34495,Released,2010-07-15,825532764,False,"Cobb, a skilled thief, steals secrets from dreams.",83.952,Your mind is the scene of the crime.,"Action, Science Fiction, Adventure","Legendary Pictures, Syncopy","rescue, mission, dream"` + "\n" +
	`157336,Interstellar,8.417,32571,Released,2014-11-05,701729206,False,Explorers travel through a wormhole.,140.241,Mankind was born on Earth.,"Adventure, Drama, Science Fiction",Paramount,"space, wormhole"` + "\n" +
	`27205,Inception (dup),1,1,Released,2010-07-15,0,False,Duplicate row.,1,,,,` + "\n" +
	`999,Upcoming,0,0,Post Production,2027-01-01,0,False,Not out yet.,0.5,,,,` + "\n" +
	`1000,Adult Film,5,10,Released,2001-01-01,0,True,Adult content.,0.1,,,,` + "\n" +
	`1001,,6,10,Released,2001-01-01,0,False,No title here.,0.1,,,,` + "\n" +
	`155,The Dark Knight,8.512,30619,Released,2008-07-16,1004558444,False,Batman raises the stakes.,130.643,,Drama,,` + "\n"

// mockEmbedder returns a fixed vector per text; safe for concurrent workers.
type mockEmbedder struct {
	mu      sync.Mutex
	dims    int
	err     error
	batches [][]string
	shortBy int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := m.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0], TotalTokens: res.TotalTokens}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts) - m.shortBy
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, m.dims)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 7 * len(texts)}, nil
}

func (m *mockEmbedder) textCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

// singleEmbedder has no batch support.
type singleEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (s *singleEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 1}, nil
}

type mockStore struct {
	mu         sync.Mutex
	stored     map[string]dommovie.Movie
	ensureErr  error
	upsertErr  error
	dropped    bool
	droppedDD  bool
	ensureCall int
}

func newMockStore() *mockStore {
	return &mockStore{stored: make(map[string]dommovie.Movie)}
}

func (s *mockStore) EnsureIndex(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureCall++
	return s.ensureErr == nil, s.ensureErr
}

func (s *mockStore) DropIndex(_ context.Context, deleteDocs bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped, s.droppedDD = true, deleteDocs
	return nil
}

func (s *mockStore) UpsertBatch(_ context.Context, movies []dommovie.Movie, _ [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for i := range movies {
		s.stored[movies[i].ID()] = movies[i]
	}
	return nil
}

func (s *mockStore) get(id string) (dommovie.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.stored[id]
	return m, ok
}

func (s *mockStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}
