// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package exportr

// Task is a plain ExportTask.
type Task struct {
	Title  string
	Sheets []SheetTask
}

var _ = ExportTask(Task{})

// NewTask returns a Task with the given sheets, in that order.
func NewTask(name string, sheets ...SheetTask) Task {
	return Task{Title: name, Sheets: sheets}
}

func (t Task) Name() string            { return t.Title }
func (t Task) SheetTasks() []SheetTask { return t.Sheets }
