package movie

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/whatmovie/internal/domain"
)

// Missing is the placeholder stored for optional text fields absent in the dataset.
const Missing = "NA"

// StatusReleased is the only dataset status admitted into the index.
const StatusReleased = "Released"

// Reject reasons, also used as metric labels by the ingest pipeline.
const (
	ReasonNoID         = "no_id"
	ReasonNotReleased  = "not_released"
	ReasonAdult        = "adult"
	ReasonMissingField = "missing_field"
)

// Raw is one TMDB dataset row before cleaning.
type Raw struct {
	ID                  string
	Title               string
	Overview            string
	Tagline             string
	Genres              string
	ProductionCompanies string
	Keywords            string
	ReleaseDate         string
	Status              string
	Adult               bool
	VoteAverage         float64
	VoteCount           float64
	Popularity          float64
}

// RejectedError explains why a raw row was dropped during cleaning.
type RejectedError struct {
	ID     string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s %q: %s", domain.ErrInvalidMovie.Error(), e.ID, e.Reason)
}

func (e *RejectedError) Unwrap() error { return domain.ErrInvalidMovie }

// Movie is a cleaned, indexable movie (immutable value object).
type Movie struct {
	id                  string
	title               string
	releaseDate         string
	genres              string
	tagline             string
	keywords            string
	overview            string
	productionCompanies string
	voteAverage         float64
	voteCount           float64
	popularity          float64
}

// Clean applies the dataset admission rules: released, non-adult, with title,
// release date and overview. Remaining empty text fields become Missing.
func Clean(r Raw) (Movie, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return Movie{}, &RejectedError{Reason: ReasonNoID}
	}
	if r.Status != StatusReleased {
		return Movie{}, &RejectedError{ID: id, Reason: ReasonNotReleased}
	}
	if r.Adult {
		return Movie{}, &RejectedError{ID: id, Reason: ReasonAdult}
	}
	title := strings.TrimSpace(r.Title)
	releaseDate := strings.TrimSpace(r.ReleaseDate)
	overview := strings.TrimSpace(r.Overview)
	if title == "" || releaseDate == "" || overview == "" {
		return Movie{}, &RejectedError{ID: id, Reason: ReasonMissingField}
	}

	return Movie{
		id:                  id,
		title:               title,
		releaseDate:         releaseDate,
		genres:              orMissing(r.Genres),
		tagline:             orMissing(r.Tagline),
		keywords:            orMissing(r.Keywords),
		overview:            overview,
		productionCompanies: orMissing(r.ProductionCompanies),
		voteAverage:         r.VoteAverage,
		voteCount:           r.VoteCount,
		popularity:          r.Popularity,
	}, nil
}

// ID returns the TMDB movie identifier.
func (m *Movie) ID() string { return m.id }

// Title returns the movie title.
func (m *Movie) Title() string { return m.title }

// ReleaseDate returns the release date as found in the dataset.
func (m *Movie) ReleaseDate() string { return m.releaseDate }

// Genres returns the comma-separated genres.
func (m *Movie) Genres() string { return m.genres }

// ProductionCompanies returns the comma-separated production companies.
func (m *Movie) ProductionCompanies() string { return m.productionCompanies }

// VoteAverage returns the average user rating.
func (m *Movie) VoteAverage() float64 { return m.voteAverage }

// VoteCount returns the number of votes.
func (m *Movie) VoteCount() float64 { return m.voteCount }

// Popularity returns the TMDB popularity score.
func (m *Movie) Popularity() float64 { return m.popularity }

// Details renders the text that is both embedded and BM25-indexed.
func (m *Movie) Details() string {
	var b strings.Builder
	b.WriteString("title: ")
	b.WriteString(m.title)
	b.WriteString(" release_date: ")
	b.WriteString(m.releaseDate)
	b.WriteString(" genres: ")
	b.WriteString(m.genres)
	b.WriteString(" tagline: ")
	b.WriteString(m.tagline)
	b.WriteString(" keywords: ")
	b.WriteString(m.keywords)
	b.WriteString(" overview: ")
	b.WriteString(m.overview)
	return b.String()
}

func orMissing(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	return s
}
