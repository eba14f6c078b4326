package db

import "errors"

var (
	// ErrKeyNotFound is returned for a missing hash or cache entry.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound is returned when dropping an index that does not exist.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by CreateIndex when the name is taken.
	ErrIndexExists = errors.New("db: index already exists")
	// ErrEmptyQuery means the text query had nothing left to search after escaping.
	ErrEmptyQuery = errors.New("db: query has no searchable terms")
)

// Redis commands, used as Error.Op.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error is a driver failure tagged with the command that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
