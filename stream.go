package main

import (
	"errors"
	"fmt"
	"strings"
)

const (
	startMarker    = "-- start"
	templateMarker = "template "
	templateSuffix = ".tpl"
)

var ErrNoQueryBlocks = errors.New("query stream contains no start markers")

// StreamSplitter turns one generated query-stream text into an ordered
// sequence of runnable query units. Classify decides whether a block holds
// one statement or two concatenated ones; nil means the select-keyword
// heuristic.
type StreamSplitter struct {
	Classify ClassifyFunc
}

// ClassifyBySelectKeyword marks a block as double when the text between
// its first and second semicolons contains a lowercase select keyword.
// Blocks without a first semicolon cannot hold two statements.
func ClassifyBySelectKeyword(block string) Classification {
	first := strings.Index(block, ";")
	if first < 0 {
		return Classification{Class: BlockSingle}
	}
	rest := block[first+1:]
	end := strings.Index(rest, ";")
	if end < 0 {
		end = len(rest)
	}
	if strings.Contains(rest[:end], "select") {
		return Classification{Class: BlockDouble, Boundary: first + 1}
	}
	return Classification{Class: BlockSingle}
}

// Split partitions text on the start marker, discards the preamble before
// the first marker, splits double blocks into part1/part2 units and
// re-attaches the marker to every emitted unit. Non-empty input with no
// marker at all is a stream-format error.
func (s *StreamSplitter) Split(text string) ([]Query, error) {
	classify := s.Classify
	if classify == nil {
		classify = ClassifyBySelectKeyword
	}
	blocks := strings.Split(text, startMarker)[1:]
	if len(blocks) == 0 {
		if strings.TrimSpace(text) != "" {
			return nil, ErrNoQueryBlocks
		}
		return nil, nil
	}
	queries := make([]Query, 0, len(blocks))
	for i, block := range blocks {
		units, err := splitBlock(block, classify(block))
		if err != nil {
			return nil, fmt.Errorf("failed to split query block #%v: %w", i+1, err)
		}
		queries = append(queries, units...)
	}
	return queries, nil
}

func splitBlock(block string, classification Classification) ([]Query, error) {
	if classification.Class == BlockSingle {
		unit, err := makeQuery(startMarker + block)
		if err != nil {
			return nil, err
		}
		return []Query{unit}, nil
	}
	boundary := classification.Boundary
	if boundary <= 0 || boundary > len(block) || block[boundary-1] != ';' {
		return nil, fmt.Errorf("classification boundary %v does not follow a statement terminator", boundary)
	}
	rest := block[boundary:]
	end := strings.Index(rest, ";")
	if end < 0 {
		end = len(rest)
	}
	head, _, _ := strings.Cut(block, "\n")
	part1 := strings.ReplaceAll(block[:boundary-1], templateSuffix, "_part1"+templateSuffix) + ";"
	part2 := strings.ReplaceAll(head, templateSuffix, "_part2"+templateSuffix) + "\n" + rest[:end] + ";"
	first, err := makeQuery(startMarker + part1)
	if err != nil {
		return nil, err
	}
	second, err := makeQuery(startMarker + part2)
	if err != nil {
		return nil, err
	}
	return []Query{first, second}, nil
}

func makeQuery(text string) (Query, error) {
	name, err := queryName(text)
	if err != nil {
		return Query{}, err
	}
	return Query{Name: name, Text: text}, nil
}

func queryName(text string) (string, error) {
	start := strings.Index(text, templateMarker)
	if start >= 0 {
		stop := strings.Index(text[start:], templateSuffix)
		if stop >= len(templateMarker) {
			return text[start+len(templateMarker) : start+stop], nil
		}
	}
	head, _, _ := strings.Cut(text, "\n")
	return "", fmt.Errorf("query block has no 'template <name>%v' marker: %v", templateSuffix, strings.TrimSpace(head))
}
