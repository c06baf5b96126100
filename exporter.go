// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package exportr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Exporter writes an ExportTask into a document created by a DocumentFactory.
//
// An Exporter is not safe for concurrent use.
type Exporter struct {
	factory DocumentFactory
	task    ExportTask
	now     func() time.Time
	logger  *slog.Logger
}

// NewExporter returns an Exporter for the task.
func NewExporter(factory DocumentFactory, task ExportTask) (*Exporter, error) {
	if factory == nil {
		return nil, fmt.Errorf("factory: %w", ErrInvalidArgument)
	}
	if task == nil {
		return nil, fmt.Errorf("task: %w", ErrInvalidArgument)
	}
	return &Exporter{factory: factory, task: task, now: time.Now}, nil
}

// SetLogger sets the logger used for progress messages.
func (e *Exporter) SetLogger(logger *slog.Logger) { e.logger = logger }

func (e *Exporter) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// FileName proposes a file name: "<name> <yyyyMMdd><.extension>".
func (e *Exporter) FileName() (string, error) {
	name := e.task.Name()
	if name == "" {
		return "", fmt.Errorf("failed to get the name of the export task: %w", ErrInvalidState)
	}
	ext := e.factory.FileExtension()
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return SanitizeFileName(name) + " " + e.now().Format("20060102") + ext, nil
}

// ExportTo writes all the sheets of the task into a new document written to w.
//
// On error the output is incomplete and must be discarded.
func (e *Exporter) ExportTo(ctx context.Context, w io.Writer) error {
	logger := e.log()
	doc, err := e.factory.CreateDocument(w)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	for _, st := range e.task.SheetTasks() {
		if err := e.exportSheet(ctx, logger, doc, st); err != nil {
			return errors.Join(err, doc.Close())
		}
	}
	return doc.Close()
}

func (e *Exporter) exportSheet(ctx context.Context, logger *slog.Logger, doc Document, st SheetTask) error {
	name := st.Name()
	sheet, err := doc.CreateSheet(name)
	if err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	defer func() {
		if sheet != nil {
			sheet.Close()
		}
	}()
	logger.Debug("sheet", "name", name)
	if err := sheet.AddHeaderRow(st.ColumnLabels()...); err != nil {
		return fmt.Errorf("%q header: %w", name, err)
	}
	var n int
	for row, err := range st.Rows(ctx) {
		if err != nil {
			return fmt.Errorf("%q rows: %w", name, err)
		}
		n++
		if err := sheet.AddRow(row...); err != nil {
			return fmt.Errorf("%q row %d: %w", name, n, err)
		}
	}
	err = sheet.Close()
	sheet = nil
	if err != nil {
		return fmt.Errorf("close sheet %q: %w", name, err)
	}
	logger.Debug("sheet written", "name", name, "rows", n)
	return nil
}

const invalidSheetNameChars = `:[]\/*?`

// SanitizeSheetName removes the characters not allowed in a sheet name.
func SanitizeSheetName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheetNameChars, r) {
			return -1
		}
		return r
	}, name)
}

// SanitizeFileName replaces the characters not allowed in a file name
// (on any common platform) with '_'.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || strings.ContainsRune(`"<>|:*?\/`, r) {
			return '_'
		}
		return r
	}, name)
}
