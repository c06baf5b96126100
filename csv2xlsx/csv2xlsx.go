// Copyright 2020, 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/UNO-SOFT/exportr"
	"github.com/UNO-SOFT/exportr/xlsx"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	fs := flag.NewFlagSet("csv2xlsx", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.String("config", "", "config file (flag=value lines)")
	flagEnc := fs.String("charset", exportr.EncName, "csv charset name")
	flagOut := fs.String("o", "", "output file name (default: <name> <yyyyMMdd>.xlsx)")
	flagName := fs.String("name", "export", "export name")
	flagLayout := fs.String("date-layout", xlsx.DefaultDateTimeLayout, "date/time layout")
	flagLang := fs.String("lang", "", "language of the number format (default: invariant)")

	app := ffcli.Command{Name: "csv2xlsx", FlagSet: fs,
		ShortUsage: "csv2xlsx [flags] [sheetName:]file.csv...",
		Options: []ff.Option{
			ff.WithEnvVarPrefix("EXPORTR"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
		},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			conv, err := xlsx.ParseConverter(*flagLang, *flagLayout)
			if err != nil {
				return err
			}
			sheets, err := exportr.CSVSheetTasks(args, *flagEnc)
			if err != nil {
				return err
			}
			defer func() {
				for _, s := range sheets {
					s.(*exportr.CSVSheetTask).Close()
				}
			}()
			exp, err := exportr.NewExporter(xlsx.Factory{Converter: conv}, exportr.NewTask(*flagName, sheets...))
			if err != nil {
				return err
			}
			exp.SetLogger(logger)
			return export(ctx, exp, *flagOut)
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.ParseAndRun(ctx, os.Args[1:])
}

func export(ctx context.Context, exp *exportr.Exporter, out string) error {
	if out == "" {
		var err error
		if out, err = exp.FileName(); err != nil {
			return err
		}
	}
	if out == "-" {
		return exp.ExportTo(ctx, os.Stdout)
	}
	fh, err := os.Create(out)
	if err != nil {
		return err
	}
	if err = exp.ExportTo(ctx, fh); err == nil {
		err = fh.Close()
	} else {
		fh.Close()
	}
	if err != nil {
		logger.Info("remove incomplete output", "file", out)
		return errors.Join(err, os.Remove(out))
	}
	logger.Info("written", "file", out)
	return nil
}
