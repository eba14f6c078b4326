package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/whatmovie/internal/db"
)

const (
	defaultVectorField = "__vector"
	defaultTextField   = "__content"
	vectorScoreField   = "__vector_score"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Scores are cosine similarity (1 - distance), clamped to [0,1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, errors.New("vector is required")
	}
	if q.K <= 0 {
		return nil, errors.New("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	params := []string{"BLOB", vectorToBytes(q.Vector)}
	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB", q.K, field)
	if q.EFRuntime > 0 {
		knnPart += " EF_RUNTIME $EF"
		params = append(params, "EF", strconv.Itoa(q.EFRuntime))
	}
	knnPart += " AS " + vectorScoreField + "]"

	args := []string{q.IndexName, "*=>" + knnPart}
	args = appendReturn(args, q.ReturnFields, vectorScoreField)
	args = append(args, "SORTBY", vectorScoreField, "ASC")
	args = append(args, "LIMIT", "0", strconv.Itoa(q.K))
	args = append(args, "PARAMS", strconv.Itoa(len(params)))
	args = append(args, params...)
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	res, err := parseReply(raw, false)
	if err != nil {
		return nil, err
	}
	distanceToSimilarity(res)
	return res, nil
}

// SearchBM25 runs a BM25 text search via FT.SEARCH. The free-text query is
// tokenized and escaped; it never reaches the server as query syntax.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.TopK <= 0 {
		return nil, errors.New("topK must be positive")
	}

	terms := buildTextQuery(q.Query, q.Match)
	if terms == "" {
		return nil, db.ErrEmptyQuery
	}

	field := q.TextField
	if field == "" {
		field = defaultTextField
	}

	args := []string{q.IndexName, fmt.Sprintf("@%s:(%s)", field, terms)}
	args = appendReturn(args, q.ReturnFields)
	if q.Scorer != "" {
		args = append(args, "SCORER", q.Scorer)
	}
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseReply(raw, true)
}

// SearchCount returns document count via FT.SEARCH with LIMIT 0 0.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func appendReturn(args, fields []string, extra ...string) []string {
	if len(fields) == 0 {
		return args
	}
	all := append(append([]string{}, fields...), extra...)
	args = append(args, "RETURN", strconv.Itoa(len(all)))
	return append(args, all...)
}

// parseReply decodes a RESP2 FT.SEARCH reply:
// [total, key, [field, value, ...], ...], with a score slot after each key
// when the query used WITHSCORES. Malformed entries are skipped.
func parseReply(raw []rueidis.RedisMessage, withScores bool) (*db.SearchResult, error) {
	res := &db.SearchResult{}
	if len(raw) == 0 {
		return res, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	res.Total = int(total)

	stride := 2
	if withScores {
		stride = 3
	}
	res.Entries = make([]db.SearchEntry, 0, (len(raw)-1)/stride)
	for i := 1; i+stride <= len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key}
		if withScores {
			str, err := raw[i+1].ToString()
			if err != nil {
				continue
			}
			score, err := strconv.ParseFloat(str, 64)
			if err != nil {
				continue
			}
			entry.Score = score
		}
		fields, err := raw[i+stride-1].ToArray()
		if err != nil {
			continue
		}
		entry.Fields = parseFieldPairs(fields)
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// distanceToSimilarity moves the KNN alias out of the fields and into Score
// as 1 - cosine distance, floored at 0.
func distanceToSimilarity(res *db.SearchResult) {
	for i := range res.Entries {
		e := &res.Entries[i]
		raw, ok := e.Fields[vectorScoreField]
		if !ok {
			continue
		}
		delete(e.Fields, vectorScoreField)
		if d, err := strconv.ParseFloat(raw, 64); err == nil {
			e.Score = max(0, 1-d)
		}
	}
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

// buildTextQuery splits free text into unique lowercase terms, escapes them
// and joins them with "|" (MatchAny) or " " (MatchAll).
func buildTextQuery(text string, match db.TextMatch) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, escapeQuery(w))
	}

	sep := "|"
	if match == db.MatchAll {
		sep = " "
	}
	return strings.Join(terms, sep)
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`,`, `\,`,
	`.`, `\.`,
	`:`, `\:`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
