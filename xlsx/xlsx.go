// Copyright 2020, 2023, 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx writes OpenXML spreadsheets.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/UNO-SOFT/exportr"
	"github.com/xuri/excelize/v2"
)

var (
	_ = (exportr.DocumentFactory)(Factory{})
	_ = (exportr.Document)((*XLSXWriter)(nil))
	_ = (exportr.Sheet)((*XLSXSheet)(nil))
)

// ValueConverter converts a row value to a cell.
type ValueConverter interface {
	Convert(v any) Cell
}

var _ = (ValueConverter)((*Converter)(nil))

// Factory creates xlsx documents.
type Factory struct {
	// Converter converts the row values, DefaultConverter if nil.
	Converter ValueConverter
}

func (Factory) FileExtension() string { return "xlsx" }

func (f Factory) CreateDocument(w io.Writer) (exportr.Document, error) {
	if w == nil {
		return nil, fmt.Errorf("w: %w", exportr.ErrInvalidArgument)
	}
	return NewWriter(w, f.Converter), nil
}

type XLSXWriter struct {
	w      io.Writer
	xl     *excelize.File
	conv   ValueConverter
	open   *XLSXSheet
	sheets []string
	// recalc is set when a formula cell got a placeholder value.
	recalc atomic.Bool
	mu     sync.Mutex
}

type XLSXSheet struct {
	w      *XLSXWriter
	sw     *excelize.StreamWriter
	conv   ValueConverter
	Name   string
	row    int
	closed bool
	mu     sync.Mutex
}

// NewWriter returns a new exportr.Document, writing to w when closed.
//
// Only one sheet can be written at a time, and each sheet is streamed,
// so big sheets do not need to fit in memory.
func NewWriter(w io.Writer, conv ValueConverter) *XLSXWriter {
	if conv == nil {
		conv = DefaultConverter
	}
	return &XLSXWriter{w: w, xl: excelize.NewFile(), conv: conv}
}

// Close the open sheet and write the workbook.
func (xlw *XLSXWriter) Close() error {
	if xlw == nil {
		return nil
	}
	xlw.mu.Lock()
	open := xlw.open
	xlw.mu.Unlock()
	var errs []error
	if open != nil {
		errs = append(errs, open.Close())
	}
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	xl, w := xlw.xl, xlw.w
	xlw.xl, xlw.w = nil, nil
	if xl == nil || w == nil {
		return errors.Join(errs...)
	}
	if xlw.recalc.Load() {
		fullCalc := true
		if err := xl.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &fullCalc}); err != nil {
			errs = append(errs, err)
		}
	}
	_, err := xl.WriteTo(w)
	errs = append(errs, err, xl.Close())
	return errors.Join(errs...)
}

// MaxSheetNameLength is the maximum length of a worksheet name.
const MaxSheetNameLength = 31

// CreateSheet adds a new worksheet.
// The characters not allowed in a sheet name are removed, and it is truncated to MaxSheetNameLength.
func (xlw *XLSXWriter) CreateSheet(name string) (exportr.Sheet, error) {
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	if xlw.xl == nil {
		return nil, fmt.Errorf("create sheet %q: %w", name, exportr.ErrClosed)
	}
	if xlw.open != nil {
		return nil, fmt.Errorf("create sheet %q: %q: %w", name, xlw.open.Name, exportr.ErrSheetOpen)
	}
	name = exportr.SanitizeSheetName(name)
	if r := []rune(name); len(r) > MaxSheetNameLength {
		name = string(r[:MaxSheetNameLength])
	}
	if len(xlw.sheets) != 0 {
		if idx, err := xlw.xl.GetSheetIndex(name); err == nil && idx >= 0 {
			return nil, fmt.Errorf("duplicate sheet name %q: %w", name, exportr.ErrInvalidArgument)
		}
	}
	if len(xlw.sheets) == 0 { // first
		if err := xlw.xl.SetSheetName("Sheet1", name); err != nil {
			return nil, err
		}
	} else if _, err := xlw.xl.NewSheet(name); err != nil {
		return nil, err
	}
	sw, err := xlw.xl.NewStreamWriter(name)
	if err != nil {
		return nil, err
	}
	xlw.sheets = append(xlw.sheets, name)
	xls := &XLSXSheet{w: xlw, sw: sw, conv: xlw.conv, Name: name}
	xlw.open = xls
	return xls, nil
}

// Sheets returns the names of the created sheets, in order.
func (xlw *XLSXWriter) Sheets() []string {
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	return append([]string(nil), xlw.sheets...)
}

// MaxRowCount is the number of maximum rows.
const MaxRowCount = 1_048_576

// Close flushes the sheet.
func (xls *XLSXSheet) Close() error {
	xls.mu.Lock()
	if xls.closed {
		xls.mu.Unlock()
		return nil
	}
	xls.closed = true
	err := xls.sw.Flush()
	xls.mu.Unlock()

	xls.w.mu.Lock()
	if xls.w.open == xls {
		xls.w.open = nil
	}
	xls.w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", xls.Name, err)
	}
	return nil
}

// AddHeaderRow writes the labels as strings, verbatim, bypassing the converter.
func (xls *XLSXSheet) AddHeaderRow(labels ...string) error {
	xls.mu.Lock()
	defer xls.mu.Unlock()
	if xls.closed {
		return fmt.Errorf("%s: %w", xls.Name, exportr.ErrClosed)
	}
	if xls.row != 0 {
		return fmt.Errorf("%s: %w", xls.Name, exportr.ErrHeaderWritten)
	}
	values := make([]any, len(labels))
	for i, s := range labels {
		values[i] = s
	}
	return xls.setRow(values)
}

// AddRow converts the values and writes them as the next row.
func (xls *XLSXSheet) AddRow(values ...any) error {
	xls.mu.Lock()
	defer xls.mu.Unlock()
	if xls.closed {
		return fmt.Errorf("%s: %w", xls.Name, exportr.ErrClosed)
	}
	row := make([]any, len(values))
	for i, v := range values {
		c := xls.conv.Convert(v)
		if c.Formula != "" && c.Kind == KindNumber {
			xls.w.recalc.Store(true)
		}
		row[i] = excelizeValue(c)
	}
	return xls.setRow(row)
}

func (xls *XLSXSheet) setRow(values []any) error {
	if xls.row >= MaxRowCount {
		return exportr.ErrTooManyRows
	}
	xls.row++
	axis, err := excelize.CoordinatesToCellName(1, xls.row)
	if err != nil {
		return fmt.Errorf("%s[%d]: %w", xls.Name, xls.row, err)
	}
	if err = xls.sw.SetRow(axis, values); err != nil {
		return fmt.Errorf("%s[%s]: %w", xls.Name, axis, err)
	}
	return nil
}

// excelizeValue returns the value excelize's StreamWriter writes as the cell.
func excelizeValue(c Cell) any {
	if c.Formula != "" {
		if c.Kind == KindNumber {
			// excelize types a formula cell as "str" unless it has a numeric value.
			return excelize.Cell{Formula: c.Formula, Value: 0}
		}
		return excelize.Cell{Formula: c.Formula}
	}
	switch c.Kind {
	case KindInlineString, KindString:
		return c.Value
	case KindNumber:
		if i, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(c.Value, 10, 64); err == nil {
			return u
		}
		if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return f
		}
		// localized separators
		return c.Value
	}
	return nil
}
