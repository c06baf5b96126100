// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetexport

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/UNO-SOFT/exportr"
)

// FetchFunc returns the entities to be exported, lazily.
type FetchFunc[E any] func(context.Context) iter.Seq2[E, error]

// InlineTask is a SheetTask which fetches entities of type E
// and parses each of them into row models of type R.
type InlineTask[E any, R AdditionalValuer] struct {
	name       string
	fetch      FetchFunc[E]
	parse      func(E) iter.Seq[R]
	additional []string
	columns    []Column
	strict     bool
}

var _ = exportr.SheetTask((*InlineTask[struct{}, RowData])(nil))

// SingleParse returns a task producing exactly one row per entity.
func SingleParse[E any, R AdditionalValuer](
	name string,
	fetch FetchFunc[E],
	parse func(E) R,
	additionalColumnNames ...string,
) (*InlineTask[E, R], error) {
	if parse == nil {
		return nil, fmt.Errorf("parse: %w", exportr.ErrInvalidArgument)
	}
	return newInlineTask(name, fetch, func(e E) iter.Seq[R] {
		return func(yield func(R) bool) { yield(parse(e)) }
	}, additionalColumnNames)
}

// MultiParse returns a task producing any number of rows per entity.
func MultiParse[E any, R AdditionalValuer](
	name string,
	fetch FetchFunc[E],
	parse func(E) iter.Seq[R],
	additionalColumnNames ...string,
) (*InlineTask[E, R], error) {
	return newInlineTask(name, fetch, parse, additionalColumnNames)
}

func newInlineTask[E any, R AdditionalValuer](
	name string,
	fetch FetchFunc[E],
	parse func(E) iter.Seq[R],
	additional []string,
) (*InlineTask[E, R], error) {
	if name == "" {
		return nil, fmt.Errorf("name: %w", exportr.ErrInvalidArgument)
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetch: %w", exportr.ErrInvalidArgument)
	}
	if parse == nil {
		return nil, fmt.Errorf("parse: %w", exportr.ErrInvalidArgument)
	}
	cols, err := Columns(reflect.TypeFor[R]())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", exportr.ErrInvalidArgument, err)
	}
	return &InlineTask[E, R]{
		name:       name,
		fetch:      fetch,
		parse:      parse,
		additional: append([]string(nil), additional...),
		columns:    cols,
	}, nil
}

// Strict makes Rows fail with exportr.ErrAdditionalMismatch when the number of
// additional values of a row differs from the number of additional columns.
//
// Without it such rows are written as they are, misaligned.
func (t *InlineTask[E, R]) Strict(strict bool) *InlineTask[E, R] {
	t.strict = strict
	return t
}

func (t *InlineTask[E, R]) Name() string { return t.name }

// ColumnLabels returns the annotated column names followed by the additional column names.
// Duplicates are kept.
func (t *InlineTask[E, R]) ColumnLabels() []string {
	labels := make([]string, 0, len(t.columns)+len(t.additional))
	for _, c := range t.columns {
		labels = append(labels, c.Name)
	}
	return append(labels, t.additional...)
}

// Rows fetches the entities and yields the values of each parsed row model.
func (t *InlineTask[E, R]) Rows(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for e, err := range t.fetch(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			for r := range t.parse(e) {
				row, err := t.rowValues(r)
				if !yield(row, err) || err != nil {
					return
				}
			}
		}
	}
}

func (t *InlineTask[E, R]) rowValues(r R) ([]any, error) {
	rv := reflect.ValueOf(r)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}
		rv = rv.Elem()
	}
	var additional []any
	if rv.IsValid() {
		additional = r.AdditionalValues()
	}
	if t.strict && len(additional) != len(t.additional) {
		return nil, fmt.Errorf("%s: got %d values for %d columns: %w",
			t.name, len(additional), len(t.additional), exportr.ErrAdditionalMismatch)
	}
	values := make([]any, len(t.columns), len(t.columns)+len(additional))
	if rv.IsValid() {
		for i, c := range t.columns {
			values[i] = c.Value(rv)
		}
	}
	return append(values, additional...), nil
}

// Entities returns a FetchFunc yielding the given entities.
func Entities[E any](entities ...E) FetchFunc[E] {
	return func(ctx context.Context) iter.Seq2[E, error] {
		return func(yield func(E, error) bool) {
			for _, e := range entities {
				if err := ctx.Err(); err != nil {
					var zero E
					yield(zero, err)
					return
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}
