// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package pdf_test

import (
	"bytes"
	"context"
	"iter"
	"testing"

	"github.com/UNO-SOFT/exportr"
	"github.com/UNO-SOFT/exportr/pdf"
	"github.com/UNO-SOFT/exportr/xlsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowsTask struct {
	name   string
	labels []string
	rows   [][]any
}

func (t rowsTask) Name() string           { return t.name }
func (t rowsTask) ColumnLabels() []string { return t.labels }
func (t rowsTask) Rows(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		for _, r := range t.rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func TestExport(t *testing.T) {
	task := exportr.NewTask("report",
		rowsTask{name: "first", labels: []string{"a", "b"}, rows: [][]any{{"x", 1}, {"y", exportr.NewFormula[int]("A1+1")}}},
		rowsTask{name: "second", labels: []string{"c"}, rows: [][]any{{true}}},
	)
	exp, err := exportr.NewExporter(pdf.Factory{Landscape: true}, task)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, exp.ExportTo(context.Background(), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestSheetStates(t *testing.T) {
	var buf bytes.Buffer
	doc, err := pdf.Factory{}.CreateDocument(&buf)
	require.NoError(t, err)
	s, err := doc.CreateSheet("s")
	require.NoError(t, err)
	_, err = doc.CreateSheet("t")
	assert.ErrorIs(t, err, exportr.ErrSheetOpen)
	require.NoError(t, s.AddRow("data"))
	assert.ErrorIs(t, s.AddHeaderRow("late"), exportr.ErrHeaderWritten)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.AddRow("x"), exportr.ErrClosed)
	require.NoError(t, doc.Close())
	_, err = doc.CreateSheet("u")
	assert.ErrorIs(t, err, exportr.ErrClosed)
	assert.NotZero(t, buf.Len())

	_, err = pdf.Factory{}.CreateDocument(nil)
	assert.ErrorIs(t, err, exportr.ErrInvalidArgument)
	assert.Equal(t, "pdf", pdf.Factory{}.FileExtension())
}

type countingConverter struct {
	seen *[]any
}

func (c countingConverter) Convert(v any) xlsx.Cell {
	*c.seen = append(*c.seen, v)
	return xlsx.DefaultConverter.Convert(v)
}

func TestCustomConverter(t *testing.T) {
	var seen []any
	task := exportr.NewTask("r", rowsTask{name: "s", labels: []string{"a"}, rows: [][]any{{"x"}, {2}}})
	exp, err := exportr.NewExporter(pdf.Factory{Converter: countingConverter{&seen}}, task)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, exp.ExportTo(context.Background(), &buf))
	assert.Equal(t, []any{"x", 2}, seen, "labels are not converted")
}
