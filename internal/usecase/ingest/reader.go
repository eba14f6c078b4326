package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	dommovie "github.com/kailas-cloud/whatmovie/internal/domain/movie"
)

// TMDB dataset column names.
const (
	colID                  = "id"
	colTitle               = "title"
	colOverview            = "overview"
	colTagline             = "tagline"
	colGenres              = "genres"
	colProductionCompanies = "production_companies"
	colKeywords            = "keywords"
	colReleaseDate         = "release_date"
	colVoteAverage         = "vote_average"
	colVoteCount           = "vote_count"
	colPopularity          = "popularity"
	colStatus              = "status"
	colAdult               = "adult"
)

var requiredColumns = []string{colID, colTitle, colOverview, colReleaseDate, colStatus}

// Reader streams raw movies out of a TMDB CSV export.
type Reader struct {
	csv  *csv.Reader
	cols map[string]int
}

// NewReader reads the header row and checks the required columns are present.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[strings.ToLower(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv header: missing column %q", name)
		}
	}
	return &Reader{csv: cr, cols: cols}, nil
}

// Next returns the next row, or io.EOF when the input is exhausted.
// Unparseable numbers read as zero.
func (r *Reader) Next() (dommovie.Raw, error) {
	rec, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dommovie.Raw{}, io.EOF
		}
		return dommovie.Raw{}, fmt.Errorf("read csv row: %w", err)
	}

	get := func(col string) string {
		i, ok := r.cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	return dommovie.Raw{
		ID:                  get(colID),
		Title:               get(colTitle),
		Overview:            get(colOverview),
		Tagline:             get(colTagline),
		Genres:              get(colGenres),
		ProductionCompanies: get(colProductionCompanies),
		Keywords:            get(colKeywords),
		ReleaseDate:         get(colReleaseDate),
		Status:              get(colStatus),
		Adult:               parseBool(get(colAdult)),
		VoteAverage:         parseFloat(get(colVoteAverage)),
		VoteCount:           parseFloat(get(colVoteCount)),
		Popularity:          parseFloat(get(colPopularity)),
	}, nil
}

// Line returns the input line of the last row read.
func (r *Reader) Line() int {
	line, _ := r.csv.FieldPos(0)
	return line
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && b
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
