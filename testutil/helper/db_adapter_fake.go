package helper

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
)

// FakeDBAdapter is a dbadapter.DBAdapter that records statements and returns canned results.
type FakeDBAdapter struct {
	mu           sync.Mutex
	queries      []string
	execs        []string
	QueryErr     error
	ExecErr      error
	Rows         [][]any
	RowsAffected int64
}

// NewFakeDBAdapter creates an empty FakeDBAdapter.
func NewFakeDBAdapter() *FakeDBAdapter {
	return &FakeDBAdapter{}
}

// Query records the query and returns the configured Rows.
func (f *FakeDBAdapter) Query(ctx context.Context, query string) (dbadapter.DBRows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if f.QueryErr != nil {
		return nil, f.QueryErr
	}

	return &fakeRows{rows: f.Rows, index: -1}, nil
}

// Exec records the statement and returns the configured result.
func (f *FakeDBAdapter) Exec(ctx context.Context, query string) (dbadapter.DBResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.execs = append(f.execs, query)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if f.ExecErr != nil {
		return nil, f.ExecErr
	}

	return fakeResult(f.RowsAffected), nil
}

// Queries returns all recorded queries.
func (f *FakeDBAdapter) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.queries...)
}

// Execs returns all recorded statements.
func (f *FakeDBAdapter) Execs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.execs...)
}

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) {
	return int64(r), nil
}

type fakeRows struct {
	rows  [][]any
	index int
}

func (r *fakeRows) Next() bool {
	r.index++

	return r.index < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.index]
	if len(row) != len(dest) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}

	for i, value := range row {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer {
			return errors.New("scan destination must be a pointer")
		}

		source := reflect.ValueOf(value)
		if !source.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("cannot scan %T into %s", value, target.Elem().Type())
		}

		target.Elem().Set(source)
	}

	return nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	return nil
}
