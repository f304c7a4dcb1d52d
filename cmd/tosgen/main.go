// Command tosgen turns an exam definition YAML file into a blueprint: the
// TOS matrix and one assigned slot per item. It writes the blueprint as JSON
// and optionally as an xlsx workbook. With -tos the matrix is read from an
// existing TOS workbook and the definition supplies only the title and the
// question types.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/p-n-ai/pai-tos/internal/authoring"
	"github.com/p-n-ai/pai-tos/internal/exam"
	"github.com/p-n-ai/pai-tos/internal/export"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tosgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in      = fs.String("in", "", "exam definition YAML file (required)")
		jsonOut = fs.String("json", "-", "blueprint JSON output path, - for stdout, empty to skip")
		xlsxOut = fs.String("xlsx", "", "TOS workbook output path")
		tosIn   = fs.String("tos", "", "TOS workbook to assign instead of apportioning from weights")
		shuffle = fs.Bool("shuffle", false, "shuffle slot order (overrides the definition)")
		seed    = fs.Uint64("seed", 0, "shuffle seed; 0 keeps the definition's seed or picks one")
		verbose = fs.Bool("v", false, "log progress to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *in == "" {
		fmt.Fprintln(stderr, "tosgen: -in is required")
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	b, err := build(*in, *tosIn, set["shuffle"], *shuffle, *seed)
	if err != nil {
		var cfgErr *authoring.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(stderr, "tosgen: %s has configuration problems:\n", *in)
			for _, p := range cfgErr.Problems {
				fmt.Fprintf(stderr, "  - %s\n", p)
			}
			return 1
		}
		fmt.Fprintf(stderr, "tosgen: %v\n", err)
		return 1
	}
	for _, w := range b.Readiness.Warnings {
		slog.Warn("readiness", "warning", w)
	}
	slog.Info("blueprint built", "slots", len(b.Slots), "coverage", b.Metadata.CoverageQuality)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, stdout, b); err != nil {
			fmt.Fprintf(stderr, "tosgen: %v\n", err)
			return 1
		}
	}
	if *xlsxOut != "" {
		if err := writeXLSX(*xlsxOut, b); err != nil {
			fmt.Fprintf(stderr, "tosgen: %v\n", err)
			return 1
		}
		slog.Info("workbook written", "path", *xlsxOut)
	}
	return 0
}

func build(path, tosPath string, overrideShuffle, shuffle bool, seed uint64) (*authoring.Blueprint, error) {
	def, err := exam.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	input, err := def.ToInput()
	if err != nil {
		return nil, err
	}
	if overrideShuffle {
		input.Shuffle = shuffle
	}
	if seed != 0 {
		input.Shuffle = true
		input.Seed = &seed
	}
	if strings.TrimSpace(input.Title) == "" {
		input.Title = def.ID
	}

	svc := authoring.NewService(authoring.ServiceConfig{})
	if tosPath == "" {
		return svc.Build(input)
	}

	im, err := readWorkbook(tosPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("workbook read", "path", tosPath, "outcomes", len(im.Outcomes), "items", im.Total())
	return svc.BuildFromTable(authoring.TableInput{
		Title:        input.Title,
		AuthorID:     input.AuthorID,
		Outcomes:     im.Outcomes,
		Matrix:       im.Matrix,
		Distribution: input.Distribution,
		Shuffle:      input.Shuffle,
		Seed:         input.Seed,
	})
}

func readWorkbook(path string) (*export.Imported, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	im, err := export.ReadTOS(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return im, nil
}

func writeJSON(path string, stdout io.Writer, b *authoring.Blueprint) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding blueprint: %w", err)
	}
	return nil
}

func writeXLSX(path string, b *authoring.Blueprint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteTOS(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
