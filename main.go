package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"grider/internal/app"
	"grider/internal/storage"
	"grider/internal/viewport"
)

var (
	dbPath       string
	inMemory     bool
	logFile      string
	logLevel     string
	units        string
	cfg          = viewport.TerminalConfig()
	log          = logrus.New()
	closeLogFile = func() {}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "grider",
		Short: "Terminal spreadsheet grid",
		Long: `grider edits a large virtual grid in the terminal. Cells, column
widths and row heights are saved to a SQLite database as you go.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: setupLogging,
		PersistentPostRun: func(*cobra.Command, []string) { closeLogFile() },
		RunE:              run,
		SilenceUsage:      true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", "grid.db", "SQLite database file")
	pf.BoolVar(&inMemory, "memory", false, "Keep everything in memory, nothing is saved")
	pf.StringVar(&logFile, "log-file", "grider.log", "Log file (the terminal is the UI)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	f := rootCmd.Flags()
	f.IntVar(&cfg.TotalRows, "rows", cfg.TotalRows, "Number of rows")
	f.IntVar(&cfg.TotalCols, "cols", cfg.TotalCols, "Number of columns")
	f.IntVar(&cfg.DefaultRowHeight, "row-height", cfg.DefaultRowHeight, "Default row height in lines")
	f.IntVar(&cfg.DefaultColWidth, "col-width", cfg.DefaultColWidth, "Default column width in characters")
	f.IntVar(&cfg.HeaderHeight, "header-height", cfg.HeaderHeight, "Column header height")
	f.IntVar(&cfg.HeaderWidth, "header-width", cfg.HeaderWidth, "Row header width")

	exportCmd := &cobra.Command{
		Use:   "export [file.csv|file.xlsx]",
		Short: "Write the grid to a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&units, "units", "terminal", "Unit of stored sizes for XLSX: terminal or pixel")

	importCmd := &cobra.Command{
		Use:   "import [file.csv|file.xlsx]",
		Short: "Load cell values from a CSV or XLSX file into the grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	rootCmd.AddCommand(exportCmd, importCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	if logFile == "" {
		log.SetOutput(os.Stderr)
		return nil
	}
	out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(out)
	closeLogFile = func() { out.Close() }
	return nil
}

func openStore(ctx context.Context) (storage.Store, error) {
	if inMemory {
		log.Info("using in-memory store")
		return storage.NewMemory(), nil
	}
	st, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	log.WithField("db", dbPath).Info("store opened")
	return st, nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	w := storage.NewWriter(st, log)
	defer w.Close()

	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("cannot create screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("cannot init screen: %w", err)
	}
	defer s.Fini()
	s.EnableMouse(tcell.MouseDragEvents)
	s.Clear()

	a, err := app.New(s, app.Options{Config: cfg, Store: st, Writer: w, Log: log, Splash: true})
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	filename := args[0]
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		err = storage.ExportCSV(ctx, st, filename)
	case ".xlsx":
		scale := storage.TerminalScale
		switch units {
		case "terminal":
		case "pixel":
			scale = storage.PixelScale
		default:
			return fmt.Errorf("invalid units: %s (must be terminal or pixel)", units)
		}
		err = storage.ExportXLSX(ctx, st, filename, scale)
	default:
		return fmt.Errorf("unsupported file type: %s", filename)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", filename, err)
	}
	log.WithField("file", filename).Info("exported")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	filename := args[0]
	var n int
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		n, err = storage.ImportCSV(ctx, st, filename)
	case ".xlsx":
		n, err = storage.ImportXLSX(ctx, st, filename)
	default:
		return fmt.Errorf("unsupported file type: %s", filename)
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", filename, err)
	}
	log.WithFields(logrus.Fields{"file": filename, "cells": n}).Info("imported")
	fmt.Printf("imported %d cells from %s\n", n, filename)
	return nil
}
