package main

import "context"

type Query struct {
	Name string
	Text string
}

type BlockClass int

const (
	BlockSingle BlockClass = iota
	BlockDouble
)

// Classification tags a stream block as one statement or as two
// concatenated statements; Boundary is the byte offset in the block where
// the second statement begins (meaningful only for BlockDouble).
type Classification struct {
	Class    BlockClass
	Boundary int
}

type ClassifyFunc func(block string) Classification

// Session is one open connection to the query engine. Registered views
// live exactly as long as the session; whoever opened the session closes it.
type Session interface {
	ID() string
	CreateTempView(ctx context.Context, table string, location string) error
	Query(ctx context.Context, query string) (Frame, error)
	Tag(label string)
	Close() error
}

// Frame is a single-pass cursor over one query's result rows.
type Frame interface {
	Columns() []string
	Next() bool
	Scan() ([]any, error)
	Err() error
	Close() error
}
