// Copyright 2020, 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package exportr converts row data into spreadsheet documents.
//
// An ExportTask describes what data becomes which sheet,
// a DocumentFactory describes how a sheet is physically written.
// The Exporter drives the two.
package exportr

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"
)

// DocumentFactory creates documents of one type.
type DocumentFactory interface {
	// FileExtension is the proposed extension of the created documents,
	// with or without the leading dot.
	FileExtension() string
	CreateDocument(w io.Writer) (Document, error)
}

// Document consists of the sheets created with CreateSheet.
// The document is written when Close is called.
//
// At most one sheet can be open at a time.
type Document interface {
	io.Closer
	CreateSheet(name string) (Sheet, error)
}

// Sheet should be Closed when finished.
type Sheet interface {
	io.Closer
	// AddHeaderRow writes the labels as plain strings. Call it at most once, first.
	AddHeaderRow(labels ...string) error
	// AddRow converts each value to a cell and writes them as one row.
	AddRow(values ...any) error
}

// ExportTask is a named, ordered collection of sheet tasks.
type ExportTask interface {
	Name() string
	SheetTasks() []SheetTask
}

// SheetTask provides the data of one sheet.
type SheetTask interface {
	Name() string
	ColumnLabels() []string
	// Rows returns a single-pass sequence of rows.
	// A non-nil error aborts the export.
	Rows(ctx context.Context) iter.Seq2[[]any, error]
}

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidState       = errors.New("invalid state")
	ErrTooManyRows        = errors.New("too many rows")
	ErrSheetOpen          = errors.New("another sheet is still open")
	ErrHeaderWritten      = errors.New("header row must be written once, before the data rows")
	ErrClosed             = errors.New("already closed")
	ErrAdditionalMismatch = errors.New("additional values do not match the additional columns")
)

// Number is a string that contains a number.
type Number string

// LocalTime is a wall clock time, written in its own location.
//
// A plain time.Time is normalized to UTC before written.
type LocalTime time.Time

// Formula is a cell formula.
//
// DefaultCellValue is only used to decide the type of the cell,
// the formula is never evaluated.
type Formula interface {
	FormulaExpression() string
	DefaultCellValue() any
}

// TypedFormula is a Formula whose result has the type T.
type TypedFormula[T any] struct {
	Expression string
}

var _ = Formula(TypedFormula[int]{})

// NewFormula returns a formula with a result of type T.
func NewFormula[T any](expression string) TypedFormula[T] {
	return TypedFormula[T]{Expression: expression}
}

func (f TypedFormula[T]) FormulaExpression() string { return f.Expression }
func (f TypedFormula[T]) DefaultCellValue() any {
	var zero T
	return zero
}
func (f TypedFormula[T]) String() string { return f.Expression }
