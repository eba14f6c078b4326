package result

// Hit is a single raw search hit as returned by a source, best first.
// Score is the source's native score and is informational only.
type Hit struct {
	id      string
	score   float64
	content string
}

// NewHit creates a source hit.
func NewHit(id string, score float64, content string) Hit {
	return Hit{id: id, score: score, content: content}
}

// ID returns the movie identifier.
func (h *Hit) ID() string { return h.id }

// Score returns the native source score.
func (h *Hit) Score() float64 { return h.score }

// Content returns the movie details text.
func (h *Hit) Content() string { return h.content }

// Ranked is an entry of one source's ordered result list.
// Rank is 1-based; within one list ranks are 1..n and IDs are unique.
type Ranked struct {
	id      string
	content string
	rank    int
}

// NewRanked creates a ranked entry.
func NewRanked(id, content string, rank int) Ranked {
	return Ranked{id: id, content: content, rank: rank}
}

// RankHits assigns ranks from list position.
func RankHits(hits []Hit) []Ranked {
	out := make([]Ranked, len(hits))
	for i := range hits {
		out[i] = Ranked{id: hits[i].id, content: hits[i].content, rank: i + 1}
	}
	return out
}

// ID returns the movie identifier.
func (r *Ranked) ID() string { return r.id }

// Content returns the movie details text.
func (r *Ranked) Content() string { return r.content }

// Rank returns the 1-based position.
func (r *Ranked) Rank() int { return r.rank }

// Fused is an entry of the fused ranking.
type Fused struct {
	id         string
	content    string
	score      float64
	rank       int
	denseRank  int
	sparseRank int
}

// NewFused creates a fused entry. A zero source rank means the ID was absent from that source.
func NewFused(id, content string, score float64, rank, denseRank, sparseRank int) Fused {
	return Fused{
		id: id, content: content, score: score,
		rank: rank, denseRank: denseRank, sparseRank: sparseRank,
	}
}

// ID returns the movie identifier.
func (f *Fused) ID() string { return f.id }

// Content returns the movie details text.
func (f *Fused) Content() string { return f.content }

// Score returns the RRF score.
func (f *Fused) Score() float64 { return f.score }

// Rank returns the 1-based position in the fused list.
func (f *Fused) Rank() int { return f.rank }

// DenseRank returns the rank in the dense list, 0 if absent.
func (f *Fused) DenseRank() int { return f.denseRank }

// SparseRank returns the rank in the sparse list, 0 if absent.
func (f *Fused) SparseRank() int { return f.sparseRank }
