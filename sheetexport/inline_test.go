// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetexport_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/UNO-SOFT/exportr"
	"github.com/UNO-SOFT/exportr/sheetexport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type someEntity struct {
	Title       string
	Description string
}

type someRow struct {
	sheetexport.RowData
	Title       string `export:"Title,order=0"`
	Description string `export:"Description,order=1"`
	OrderA      string `export:"OrderA,order=3"`
	OrderB      string `export:"OrderB,order=4"`
	OrderC      string `export:"OrderC,order=2"`
	Ignored     string
	Empty       string `export:",order=9"`
}

func fetchTwo() sheetexport.FetchFunc[someEntity] {
	return sheetexport.Entities(
		someEntity{Title: "Title1", Description: "DescriptionA"},
		someEntity{Title: "Title2", Description: "DescriptionB"},
	)
}

func parseWith(additional ...any) func(someEntity) iter.Seq[someRow] {
	return func(e someEntity) iter.Seq[someRow] {
		return func(yield func(someRow) bool) {
			yield(someRow{
				Title: e.Title, Description: e.Description,
				OrderA: "aa", OrderB: "bb", OrderC: "cc",
				RowData: sheetexport.RowData{Additional: additional},
			})
		}
	}
}

func collect(t *testing.T, st exportr.SheetTask) [][]any {
	t.Helper()
	var rows [][]any
	for row, err := range st.Rows(context.Background()) {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestInvalidArguments(t *testing.T) {
	single := func(e someEntity) someRow { return someRow{} }
	multi := parseWith()
	for _, tc := range []struct {
		param string
		err   error
	}{
		{"name", second(sheetexport.SingleParse("", fetchTwo(), single))},
		{"fetch", second(sheetexport.SingleParse[someEntity]("n", nil, single))},
		{"parse", second(sheetexport.SingleParse[someEntity, someRow]("n", fetchTwo(), nil))},
		{"name", second(sheetexport.MultiParse("", fetchTwo(), multi))},
		{"fetch", second(sheetexport.MultiParse[someEntity]("n", nil, multi))},
		{"parse", second(sheetexport.MultiParse[someEntity, someRow]("n", fetchTwo(), nil))},
	} {
		assert.ErrorIs(t, tc.err, exportr.ErrInvalidArgument, tc.param)
		assert.ErrorContains(t, tc.err, tc.param)
	}
}

func second[T any](_ T, err error) error { return err }

func TestName(t *testing.T) {
	name := uuid.NewString()
	st, err := sheetexport.SingleParse(name, fetchTwo(), func(someEntity) someRow { return someRow{} })
	require.NoError(t, err)
	assert.Equal(t, name, st.Name())

	mt, err := sheetexport.MultiParse(name, fetchTwo(), parseWith())
	require.NoError(t, err)
	assert.Equal(t, name, mt.Name())
}

func TestNoAdditionalData(t *testing.T) {
	st, err := sheetexport.MultiParse("SomeName", fetchTwo(), parseWith())
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Description", "OrderC", "OrderA", "OrderB"}, st.ColumnLabels())
	assert.Equal(t, [][]any{
		{"Title1", "DescriptionA", "cc", "aa", "bb"},
		{"Title2", "DescriptionB", "cc", "aa", "bb"},
	}, collect(t, st))
}

func TestAdditionalData(t *testing.T) {
	st, err := sheetexport.MultiParse("SomeName", fetchTwo(), parseWith(true, 1), "Additional1", "Additional2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Description", "OrderC", "OrderA", "OrderB", "Additional1", "Additional2"}, st.ColumnLabels())
	assert.Equal(t, [][]any{
		{"Title1", "DescriptionA", "cc", "aa", "bb", true, 1},
		{"Title2", "DescriptionB", "cc", "aa", "bb", true, 1},
	}, collect(t, st))
}

func TestAdditionalDataDuplicates(t *testing.T) {
	st, err := sheetexport.MultiParse("SomeName", fetchTwo(), parseWith("cc", "aa"), "OrderA", "OrderB")
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Description", "OrderC", "OrderA", "OrderB", "OrderA", "OrderB"}, st.ColumnLabels())
	assert.Equal(t, [][]any{
		{"Title1", "DescriptionA", "cc", "aa", "bb", "cc", "aa"},
		{"Title2", "DescriptionB", "cc", "aa", "bb", "cc", "aa"},
	}, collect(t, st))
}

func TestSingleParsePointerRows(t *testing.T) {
	st, err := sheetexport.SingleParse("p", fetchTwo(), func(e someEntity) *someRow {
		if e.Title == "Title2" {
			return nil
		}
		return &someRow{Title: e.Title, RowData: sheetexport.RowData{Additional: []any{42}}}
	}, "Answer")
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"Title1", "", "", "", "", 42},
		{nil, nil, nil, nil, nil},
	}, collect(t, st))
}

func TestMultiParseManyRows(t *testing.T) {
	st, err := sheetexport.MultiParse("m", fetchTwo(), func(e someEntity) iter.Seq[someRow] {
		return func(yield func(someRow) bool) {
			for _, s := range []string{"x", "y"} {
				if !yield(someRow{Title: e.Title + s}) {
					return
				}
			}
		}
	})
	require.NoError(t, err)
	var titles []any
	for _, row := range collect(t, st) {
		titles = append(titles, row[0])
	}
	assert.Equal(t, []any{"Title1x", "Title1y", "Title2x", "Title2y"}, titles)
}

func TestMismatchedAdditional(t *testing.T) {
	st, err := sheetexport.MultiParse("s", fetchTwo(), parseWith(true), "A", "B")
	require.NoError(t, err)
	rows := collect(t, st)
	assert.Len(t, rows[0], 6, "lenient by default")

	var got error
	for _, err := range st.Strict(true).Rows(context.Background()) {
		if err != nil {
			got = err
		}
	}
	assert.ErrorIs(t, got, exportr.ErrAdditionalMismatch)
}

func TestFetchError(t *testing.T) {
	errFetch := errors.New("db down")
	fetch := func(ctx context.Context) iter.Seq2[someEntity, error] {
		return func(yield func(someEntity, error) bool) {
			if !yield(someEntity{Title: "t"}, nil) {
				return
			}
			yield(someEntity{}, errFetch)
		}
	}
	st, err := sheetexport.MultiParse("e", fetch, parseWith())
	require.NoError(t, err)
	var n int
	var got error
	for _, err := range st.Rows(context.Background()) {
		if err != nil {
			got = err
			break
		}
		n++
	}
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, got, errFetch)
}

func TestEntitiesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := sheetexport.MultiParse("c", fetchTwo(), parseWith())
	require.NoError(t, err)
	for _, err := range st.Rows(ctx) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
