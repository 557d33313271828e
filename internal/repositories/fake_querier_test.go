package repositories

import (
	"context"
	"strings"
)

// fakeQuerier is an in-memory graph.Querier that records every query and
// returns canned results in order. One fake serves all repository tests.
type fakeQuerier struct {
	// results are returned one per call, shared across reads and writes.
	results [][]map[string]any
	err     error

	reads  []executedQuery
	writes []executedQuery
}

type executedQuery struct {
	cypher string
	params map[string]any
}

func (f *fakeQuerier) ExecuteRead(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.reads = append(f.reads, executedQuery{cypher: cypher, params: params})
	return f.next()
}

func (f *fakeQuerier) ExecuteWrite(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.writes = append(f.writes, executedQuery{cypher: cypher, params: params})
	return f.next()
}

func (f *fakeQuerier) next() ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	records := f.results[0]
	f.results = f.results[1:]
	return records, nil
}

// containsAll reports whether cypher contains every fragment.
func containsAll(cypher string, fragments ...string) bool {
	for _, fragment := range fragments {
		if !strings.Contains(cypher, fragment) {
			return false
		}
	}
	return true
}
