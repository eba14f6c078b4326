package db

// TextMatch selects how query terms are combined in a BM25 search.
type TextMatch int

const (
	// MatchAny ORs the query terms, so partial descriptions still rank documents.
	MatchAny TextMatch = iota
	// MatchAll requires every term (RediSearch default intersection).
	MatchAll
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	EFRuntime    int // HNSW query-time candidate list size; 0 keeps the index default
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	TextField    string
	Query        string
	Match        TextMatch
	TopK         int
	Scorer       string // FT.SEARCH SCORER, empty keeps the server default
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
