// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package sheetexport builds sheet tasks from annotated row models.
//
// A row model is a struct whose exported fields are tagged with
//
//	export:"Column name,order=2"
//
// Untagged fields (and fields with an empty name) are not exported.
// Fields promoted from an embedded struct are columns only if every
// embedded struct on the way is exported; unlike encoding/json, the
// fields of an unexported embedded struct are skipped.
// Columns are ordered by ascending order, ties keep the field order.
package sheetexport

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// TagName is the struct tag key of the column annotation.
const TagName = "export"

// RowData is embedded into row models to carry values
// for the additional columns of the task.
type RowData struct {
	Additional []any
}

// AdditionalValues returns the values written after the annotated columns.
func (r RowData) AdditionalValues() []any { return r.Additional }

// AdditionalValuer is implemented by every row model embedding RowData.
type AdditionalValuer interface {
	AdditionalValues() []any
}

// Column is a resolved column of a row model.
type Column struct {
	Name  string
	Order int
	index []int
}

// Value returns the column's value from the struct v.
func (c Column) Value(v reflect.Value) any {
	f, err := v.FieldByIndexErr(c.index)
	if err != nil {
		return nil
	}
	return f.Interface()
}

var columnCache sync.Map // reflect.Type -> columnsResult

type columnsResult struct {
	columns []Column
	err     error
}

// Columns returns the ordered columns of the struct type (or pointer to struct) t.
// The result is cached per type.
func Columns(t reflect.Type) ([]Column, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v, ok := columnCache.Load(t); ok {
		res := v.(columnsResult)
		return res.columns, res.err
	}
	cols, err := resolveColumns(t)
	columnCache.Store(t, columnsResult{columns: cols, err: err})
	return cols, err
}

func resolveColumns(t reflect.Type) ([]Column, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%v is not a struct", t)
	}
	var cols []Column
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous || !reachable(t, f.Index) {
			continue
		}
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		name, order, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("%v.%s: %w", t, f.Name, err)
		}
		if name == "" {
			continue
		}
		cols = append(cols, Column{Name: name, Order: order, index: f.Index})
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Order < cols[j].Order })
	return cols, nil
}

// reachable reports whether every embedded struct on the path is exported.
func reachable(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		if !t.FieldByIndex(index[:i]).IsExported() {
			return false
		}
	}
	return true
}

func parseTag(tag string) (name string, order int, err error) {
	name, rest, _ := strings.Cut(tag, ",")
	for rest != "" {
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		k, v, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch k {
		case "order":
			if order, err = strconv.Atoi(v); err != nil {
				return "", 0, fmt.Errorf("order %q: %w", v, err)
			}
		case "":
		default:
			return "", 0, fmt.Errorf("unknown option %q", k)
		}
	}
	return name, order, nil
}
