// Copyright 2021, 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package pdf renders the sheets as tables of a PDF document.
package pdf

import (
	"fmt"
	"io"
	"sync"

	"github.com/UNO-SOFT/exportr"
	"github.com/UNO-SOFT/exportr/xlsx"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	_ = (exportr.DocumentFactory)(Factory{})
	_ = (exportr.Document)((*Writer)(nil))
	_ = (exportr.Sheet)((*Sheet)(nil))
)

// Factory creates PDF documents.
type Factory struct {
	// Converter renders the values as text, xlsx.DefaultConverter if nil.
	Converter xlsx.ValueConverter
	// FontSize of the data rows, 8 if zero.
	FontSize float64
	// GridSize is the number of grid columns of a page, 12 if zero.
	GridSize int
	// Landscape orientation instead of portrait.
	Landscape bool
}

func (Factory) FileExtension() string { return "pdf" }

func (f Factory) CreateDocument(w io.Writer) (exportr.Document, error) {
	if w == nil {
		return nil, fmt.Errorf("w: %w", exportr.ErrInvalidArgument)
	}
	if f.Converter == nil {
		f.Converter = xlsx.DefaultConverter
	}
	if f.FontSize <= 0 {
		f.FontSize = 8
	}
	if f.GridSize <= 0 {
		f.GridSize = 12
	}
	b := config.NewBuilder().WithMaxGridSize(f.GridSize)
	if f.Landscape {
		b = b.WithOrientation(orientation.Horizontal)
	}
	return &Writer{w: w, m: maroto.New(b.Build()), f: f}, nil
}

// Writer collects the sheets in memory and renders them on Close.
type Writer struct {
	w      io.Writer
	m      core.Maroto
	f      Factory
	open   *Sheet
	sheets int
	mu     sync.Mutex
}

type Sheet struct {
	w      *Writer
	Name   string
	rows   int
	closed bool
}

func (pw *Writer) CreateSheet(name string) (exportr.Sheet, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.m == nil {
		return nil, fmt.Errorf("create sheet %q: %w", name, exportr.ErrClosed)
	}
	if pw.open != nil {
		return nil, fmt.Errorf("create sheet %q: %q: %w", name, pw.open.Name, exportr.ErrSheetOpen)
	}
	name = exportr.SanitizeSheetName(name)
	pw.sheets++
	pw.m.AddRows(row.New().Add(text.NewCol(pw.f.GridSize, name, props.Text{
		Style: fontstyle.Bold, Size: pw.f.FontSize * 1.375,
	})))
	pw.open = &Sheet{w: pw, Name: name}
	return pw.open, nil
}

// Close renders the document and writes it.
func (pw *Writer) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.open != nil {
		pw.open.closed, pw.open = true, nil
	}
	m, w := pw.m, pw.w
	pw.m, pw.w = nil, nil
	if m == nil || w == nil {
		return nil
	}
	doc, err := m.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

func (s *Sheet) Close() error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	s.closed = true
	if s.w.open == s {
		s.w.open = nil
	}
	return nil
}

func (s *Sheet) AddHeaderRow(labels ...string) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s: %w", s.Name, exportr.ErrClosed)
	}
	if s.rows != 0 {
		return fmt.Errorf("%s: %w", s.Name, exportr.ErrHeaderWritten)
	}
	s.addRow(labels, props.Text{Style: fontstyle.Bold, Size: s.w.f.FontSize})
	return nil
}

func (s *Sheet) AddRow(values ...any) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s: %w", s.Name, exportr.ErrClosed)
	}
	texts := make([]string, len(values))
	for i, v := range values {
		c := s.w.f.Converter.Convert(v)
		if c.Formula != "" {
			texts[i] = "=" + c.Formula
		} else {
			texts[i] = c.Value
		}
	}
	s.addRow(texts, props.Text{Style: fontstyle.Normal, Size: s.w.f.FontSize})
	return nil
}

func (s *Sheet) addRow(texts []string, prop props.Text) {
	s.rows++
	if len(texts) == 0 {
		return
	}
	size := max(1, s.w.f.GridSize/len(texts))
	cols := make([]core.Col, len(texts))
	for i, t := range texts {
		cols[i] = text.NewCol(size, t, prop)
	}
	s.w.m.AddRows(row.New().Add(cols...))
}
