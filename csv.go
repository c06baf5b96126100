// Copyright 2020, 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package exportr

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// EncName is the charset of the environment's LANG, utf-8 if unknown.
var EncName = "utf-8"

func init() { EncName = langEncName(os.Getenv("LANG")) }

// langEncName returns the charset part of a locale name ("hu_HU.ISO-8859-2@euro"),
// utf-8 if it has none (C, POSIX) or it is not a known encoding.
func langEncName(lang string) string {
	_, enc, ok := strings.Cut(lang, ".")
	enc, _, _ = strings.Cut(enc, "@")
	enc = strings.ToLower(enc)
	if !ok || enc == "" {
		return "utf-8"
	}
	if _, err := GetEncoding(enc); err != nil {
		return "utf-8"
	}
	return enc
}

func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

// CSVReader is a csv.Reader which closes the underlying file.
type CSVReader struct {
	*csv.Reader
	io.Closer
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// OpenCsv opens the named file ("-" or empty for stdin) as csv,
// decompressing gzip and zstd input, decoding from encName
// and guessing the field separator.
func OpenCsv(fn, encName string) (CSVReader, error) {
	var enc encoding.Encoding
	if encName != "" {
		var err error
		if enc, err = GetEncoding(encName); err != nil {
			return CSVReader{}, err
		}
	}
	fh := os.Stdin
	if !(fn == "" || fn == "-") {
		var err error
		if fh, err = os.Open(fn); err != nil {
			return CSVReader{}, err
		}
	}
	r, err := decompress(fh)
	if err != nil {
		fh.Close()
		return CSVReader{}, fmt.Errorf("%q: %w", fn, err)
	}
	if enc != nil {
		r = struct {
			io.Reader
			io.Closer
		}{enc.NewDecoder().Reader(r), r}
	}
	br := bufio.NewReaderSize(r, 1<<20)
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		r.Close()
		return CSVReader{}, err
	}
	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.Comma = sniffSeparator(b)
	return CSVReader{cr, r}, nil
}

// separators are the accepted field separators.
const separators = ",;\t|"

// sniffSeparator returns the first separator outside quotes on the first line of b.
func sniffSeparator(b []byte) rune {
	var quoted bool
	for _, r := range string(b) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '\n' || r == '\r':
			return ','
		case strings.ContainsRune(separators, r):
			return r
		}
	}
	return ','
}

type multiCloser []io.Closer

func (mc multiCloser) Close() error {
	var errs []error
	for _, c := range mc {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func decompress(fh *os.File) (io.ReadCloser, error) {
	br := bufio.NewReader(fh)
	magic, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{zr, multiCloser{zr, fh}}, nil
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		rc := zr.IOReadCloser()
		return struct {
			io.Reader
			io.Closer
		}{rc, multiCloser{rc, fh}}, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{br, fh}, nil
}

// CSVSheetTask is a SheetTask reading a csv file.
// The first record holds the column labels, every value is a string.
type CSVSheetTask struct {
	name   string
	labels []string
	cr     CSVReader
}

var _ = SheetTask((*CSVSheetTask)(nil))

// NewCSVSheetTask opens the csv file and reads its header.
//
// The file is closed when the rows are consumed, or by Close.
func NewCSVSheetTask(name, fn, encName string) (*CSVSheetTask, error) {
	if name == "" {
		return nil, fmt.Errorf("name: %w", ErrInvalidArgument)
	}
	cr, err := OpenCsv(fn, encName)
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		cr.Close()
		return nil, fmt.Errorf("read header of %q: %w", fn, err)
	}
	return &CSVSheetTask{name: name, labels: append([]string(nil), header...), cr: cr}, nil
}

func (t *CSVSheetTask) Name() string           { return t.name }
func (t *CSVSheetTask) ColumnLabels() []string { return t.labels }

// Close the underlying file.
func (t *CSVSheetTask) Close() error {
	if t.cr.Reader == nil {
		return nil
	}
	t.cr.Reader = nil
	return t.cr.Closer.Close()
}

func (t *CSVSheetTask) Rows(ctx context.Context) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		if t.cr.Reader == nil {
			yield(nil, fmt.Errorf("%s: %w", t.name, ErrClosed))
			return
		}
		defer t.Close()
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			rec, err := t.cr.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
				}
				return
			}
			row := make([]any, len(rec))
			for i, s := range rec {
				row[i] = s
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// CSVSheetTasks opens the csv files given as "[sheetName:]fileName" arguments.
// The sheet name defaults to the base file name without the .csv extension,
// or "SheetN" for stdin.
func CSVSheetTasks(args []string, encName string) ([]SheetTask, error) {
	tasks := make([]SheetTask, 0, len(args))
	for i, fn := range args {
		sheetName := fmt.Sprintf("Sheet%d", i+1)
		if i := strings.IndexByte(fn, ':'); i >= 0 {
			sheetName, fn = fn[:i], fn[i+1:]
		} else if fn != "" && fn != "-" {
			sheetName = filepath.Base(fn)
			for _, ext := range []string{".gz", ".zst", ".csv"} {
				sheetName = strings.TrimSuffix(sheetName, ext)
			}
		}
		t, err := NewCSVSheetTask(sheetName, fn, encName)
		if err != nil {
			for _, t := range tasks {
				t.(*CSVSheetTask).Close()
			}
			return nil, fmt.Errorf("%q: %w", fn, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
