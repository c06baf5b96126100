// Copyright 2021 Tamas Gulacsi. All rights reserved.

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/UNO-SOFT/exportr"
	"github.com/UNO-SOFT/exportr/pdf"
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
	fs := flag.NewFlagSet("csv2pdf", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.String("config", "", "config file (flag=value lines)")
	flagEnc := fs.String("charset", exportr.EncName, "csv charset name")
	flagOut := fs.String("o", "", "output file name (default: <name> <yyyyMMdd>.pdf)")
	flagName := fs.String("name", "", "export name (default: the first input file)")
	flagLayout := fs.String("date-layout", xlsx.DefaultDateTimeLayout, "date/time layout")
	flagLang := fs.String("lang", "", "language of the number format (default: invariant)")
	flagLandscape := fs.Bool("L", false, "landscape orientation (default: portrait)")
	flagFontSize := fs.Float64("f", 8, "font size")
	flagGrid := fs.Int("grid", 12, "grid columns of a page")

	app := ffcli.Command{Name: "csv2pdf", FlagSet: fs,
		ShortUsage: "csv2pdf [flags] [sheetName:]file.csv...",
		Options: []ff.Option{
			ff.WithEnvVarPrefix("EXPORTR"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
		},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			name := *flagName
			if name == "" {
				name = "export"
				if args[0] != "" && args[0] != "-" {
					name = args[0]
				}
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
			factory := pdf.Factory{
				Converter: conv,
				FontSize:  *flagFontSize, GridSize: *flagGrid,
				Landscape: *flagLandscape,
			}
			exp, err := exportr.NewExporter(factory, exportr.NewTask(name, sheets...))
			if err != nil {
				return err
			}
			exp.SetLogger(logger)

			out := *flagOut
			if out == "" {
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
				return errors.Join(err, os.Remove(out))
			}
			logger.Info("written", "file", out)
			return nil
		},
	}

	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if strings.HasPrefix(a, "-f") && len(a) > 2 && '0' <= a[2] && a[2] <= '9' {
			args = append(args, "-f", a[2:])
		} else {
			args = append(args, a)
		}
	}
	logger.Debug("args", "original", os.Args[1:], "fixed", args)

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.ParseAndRun(ctx, args)
}
