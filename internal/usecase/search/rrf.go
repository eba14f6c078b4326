package search

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/whatmovie/internal/domain"
	"github.com/kailas-cloud/whatmovie/internal/domain/search/result"
)

const (
	// DefaultRRFK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
	DefaultRRFK = 60
	// DefaultTopK is the number of fused results handed to the chat model.
	DefaultTopK = 10
)

// Fuser merges a dense and a sparse ranking via Reciprocal Rank Fusion.
// score(d) = 1/(k + rank_dense(d)) + 1/(k + rank_sparse(d)); a missing rank contributes 0.
type Fuser struct {
	k int
}

// NewFuser creates a fuser with smoothing constant k (k <= 0 selects DefaultRRFK).
func NewFuser(k int) *Fuser {
	if k <= 0 {
		k = DefaultRRFK
	}
	return &Fuser{k: k}
}

// K returns the smoothing constant.
func (f *Fuser) K() int { return f.k }

// Fuse full-outer-joins both rankings on ID and returns the topK best entries
// ranked 1..n. topK <= 0 selects DefaultTopK.
//
// Ordering: score desc, then dense rank asc, then sparse rank asc, then ID asc.
// An absent rank sorts after any present one. Content is taken from the sparse
// entry when the ID is present there, otherwise from the dense entry.
func (f *Fuser) Fuse(dense, sparse []result.Ranked, topK int) ([]result.Fused, error) {
	if err := validateRanking("dense", dense); err != nil {
		return nil, err
	}
	if err := validateRanking("sparse", sparse); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	type merged struct {
		id         string
		content    string
		score      float64
		denseRank  int
		sparseRank int
	}

	byID := make(map[string]*merged, len(dense)+len(sparse))
	order := make([]*merged, 0, len(dense)+len(sparse))

	for i := range dense {
		d := &dense[i]
		m := &merged{id: d.ID(), content: d.Content(), denseRank: d.Rank()}
		m.score = f.contribution(d.Rank())
		byID[m.id] = m
		order = append(order, m)
	}

	for i := range sparse {
		s := &sparse[i]
		m, ok := byID[s.ID()]
		if !ok {
			m = &merged{id: s.ID()}
			byID[m.id] = m
			order = append(order, m)
		}
		m.sparseRank = s.Rank()
		m.content = s.Content()
		m.score += f.contribution(s.Rank())
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.denseRank != b.denseRank {
			return rankLess(a.denseRank, b.denseRank)
		}
		if a.sparseRank != b.sparseRank {
			return rankLess(a.sparseRank, b.sparseRank)
		}
		return a.id < b.id
	})

	if len(order) > topK {
		order = order[:topK]
	}

	out := make([]result.Fused, len(order))
	for i, m := range order {
		out[i] = result.NewFused(m.id, m.content, m.score, i+1, m.denseRank, m.sparseRank)
	}
	return out, nil
}

func (f *Fuser) contribution(rank int) float64 {
	if rank == 0 {
		return 0
	}
	return 1.0 / float64(f.k+rank)
}

// rankLess orders present ranks ascending and absent (0) ranks last.
func rankLess(a, b int) bool {
	switch {
	case a == 0:
		return false
	case b == 0:
		return true
	default:
		return a < b
	}
}

// validateRanking checks that ranks are exactly 1..n and IDs are unique.
func validateRanking(source string, items []result.Ranked) error {
	seenID := make(map[string]struct{}, len(items))
	seenRank := make([]bool, len(items)+1)
	for i := range items {
		it := &items[i]
		if _, dup := seenID[it.ID()]; dup {
			return fmt.Errorf("%w: %s: duplicate id %q", domain.ErrMalformedInput, source, it.ID())
		}
		seenID[it.ID()] = struct{}{}

		r := it.Rank()
		if r <= 0 {
			return fmt.Errorf("%w: %s: non-positive rank %d for %q", domain.ErrMalformedInput, source, r, it.ID())
		}
		if r > len(items) || seenRank[r] {
			return fmt.Errorf("%w: %s: ranks are not contiguous from 1 (rank %d)",
				domain.ErrMalformedInput, source, r)
		}
		seenRank[r] = true
	}
	return nil
}
