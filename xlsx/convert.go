// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/UNO-SOFT/exportr"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Kind is the declared type of a cell.
type Kind uint8

const (
	KindNone Kind = iota
	KindInlineString
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInlineString:
		return "inlineStr"
	case KindNumber:
		return "n"
	case KindString:
		return "str"
	default:
		return ""
	}
}

// MaxCellChars is the number of characters kept in an inline string cell.
// Excel allows 32767 characters in a cell.
const MaxCellChars = 32764

// Cell is a converted value.
// The zero Cell is an empty cell.
type Cell struct {
	Kind Kind
	// Value is the text of an inline string, or the rendered number.
	Value string
	// Formula is the expression of a formula cell, which has no Value.
	Formula string
	// PreserveSpace is set when Value has leading or trailing whitespace.
	// The xlsx writer does not read it: excelize marks xml:space on its own.
	PreserveSpace bool
}

// IsEmpty reports whether the cell has neither type nor value.
func (c Cell) IsEmpty() bool { return c == Cell{} }

// DefaultDateTimeLayout is the round-trip date/time layout.
const DefaultDateTimeLayout = "2006-01-02T15:04:05.0000000Z07:00"

// Converter converts values to cells.
type Converter struct {
	// Lang selects the number formatting; language.Und formats invariantly.
	Lang language.Tag
	// DateTimeLayout formats the time values.
	DateTimeLayout string

	printer *message.Printer
}

// DefaultConverter formats invariantly with DefaultDateTimeLayout.
var DefaultConverter = &Converter{DateTimeLayout: DefaultDateTimeLayout}

// NewConverter returns a Converter for the language with the layout.
func NewConverter(lang language.Tag, dateTimeLayout string) (*Converter, error) {
	if dateTimeLayout == "" {
		return nil, fmt.Errorf("dateTimeLayout: %w", exportr.ErrInvalidArgument)
	}
	c := Converter{Lang: lang, DateTimeLayout: dateTimeLayout}
	if lang != language.Und {
		c.printer = message.NewPrinter(lang)
	}
	return &c, nil
}

// ParseConverter is NewConverter with the language given by its BCP 47 name,
// the empty name meaning invariant formatting.
func ParseConverter(lang, dateTimeLayout string) (*Converter, error) {
	tag := language.Und
	if lang != "" {
		var err error
		if tag, err = language.Parse(lang); err != nil {
			return nil, fmt.Errorf("lang %q: %w", lang, err)
		}
	}
	return NewConverter(tag, dateTimeLayout)
}

// Convert the value to a Cell.
//
// Unsupported values (including nil) result in an empty Cell, never an error.
func (c *Converter) Convert(value any) Cell {
	if f, ok := value.(exportr.Formula); ok {
		return formulaCell(f)
	}
	switch x := value.(type) {
	case string:
		return InlineStringCell(x)
	case uuid.UUID:
		return InlineStringCell(x.String())
	case exportr.LocalTime:
		return InlineStringCell(c.formatTime(time.Time(x)))
	case time.Time:
		return InlineStringCell(c.formatTime(x.UTC()))
	case bool:
		if x {
			return InlineStringCell("True")
		}
		return InlineStringCell("False")
	case int:
		return c.intCell(int64(x))
	case int8:
		return c.intCell(int64(x))
	case int16:
		return c.intCell(int64(x))
	case int32:
		return c.intCell(int64(x))
	case int64:
		return c.intCell(x)
	case uint:
		return c.uintCell(uint64(x))
	case uint8:
		return c.uintCell(uint64(x))
	case uint16:
		return c.uintCell(uint64(x))
	case uint32:
		return c.uintCell(uint64(x))
	case uint64:
		return c.uintCell(x)
	case float32:
		return c.floatCell(float64(x))
	case float64:
		return c.floatCell(x)
	case exportr.Number:
		return Cell{Kind: KindNumber, Value: string(x)}
	case driver.Valuer:
		v, err := x.Value()
		if err != nil {
			return Cell{}
		}
		if _, same := v.(driver.Valuer); same {
			return Cell{}
		}
		return c.Convert(v)
	}
	return Cell{}
}

func formulaCell(f exportr.Formula) Cell {
	kind := KindString
	switch f.DefaultCellValue().(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, exportr.Number:
		kind = KindNumber
	}
	return Cell{Kind: kind, Formula: f.FormulaExpression()}
}

// InlineStringCell returns an inline string cell of s,
// truncated to MaxCellChars characters.
func InlineStringCell(s string) Cell {
	if utf8.RuneCountInString(s) > MaxCellChars {
		var n, i int
		for i = range s {
			if n == MaxCellChars {
				break
			}
			n++
		}
		s = s[:i]
	}
	return Cell{Kind: KindInlineString, Value: s, PreserveSpace: strings.TrimSpace(s) != s}
}

func (c *Converter) formatTime(t time.Time) string {
	layout := c.DateTimeLayout
	if layout == "" {
		layout = DefaultDateTimeLayout
	}
	return t.Format(layout)
}

func (c *Converter) numberPrinter() *message.Printer {
	if c.printer != nil || c.Lang == language.Und {
		return c.printer
	}
	return message.NewPrinter(c.Lang)
}

func (c *Converter) intCell(i int64) Cell {
	if p := c.numberPrinter(); p != nil {
		return Cell{Kind: KindNumber, Value: p.Sprint(number.Decimal(i, number.NoSeparator()))}
	}
	return Cell{Kind: KindNumber, Value: strconv.FormatInt(i, 10)}
}

func (c *Converter) uintCell(u uint64) Cell {
	if p := c.numberPrinter(); p != nil {
		return Cell{Kind: KindNumber, Value: p.Sprint(number.Decimal(u, number.NoSeparator()))}
	}
	return Cell{Kind: KindNumber, Value: strconv.FormatUint(u, 10)}
}

// floatCell keeps 15 significant digits, as a decimal would.
// NaN and the infinities have no decimal form, so they result in an empty cell.
func (c *Converter) floatCell(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}
	}
	f, _ = strconv.ParseFloat(strconv.FormatFloat(f, 'g', 15, 64), 64)
	if p := c.numberPrinter(); p != nil {
		return Cell{Kind: KindNumber, Value: p.Sprint(number.Decimal(f,
			number.NoSeparator(), number.MaxFractionDigits(28)))}
	}
	return Cell{Kind: KindNumber, Value: strconv.FormatFloat(f, 'f', -1, 64)}
}
