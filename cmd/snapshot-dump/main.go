// Command snapshot-dump prints the snapshot logs of an agent group.
//
//	snapshot-dump [flags] <group snapshot dir>
//
// The backend is detected from the directory contents unless -backend is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	// Load NATS_URL and friends from .env
	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/agentgroup/config"
	"github.com/casualjim/agentgroup/pkg/slogx"
	"github.com/casualjim/agentgroup/snapshot"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelWarn}),
	))
}

// Output formats.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatPretty   = "pretty"
	formatMarkdown = "markdown"
)

type options struct {
	dir     string
	backend string
	kind    snapshot.Kind
	fields  []string
	format  string
	meta    bool
	limit   int
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("failed to dump snapshot", slogx.Error(err))
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("snapshot-dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := fs.String("backend", "", "snapshot backend: avro or sqlite (default: detect)")
	kind := fs.String("kind", string(snapshot.KindStatus), "log to print: profile, dialog, status or survey")
	fields := fs.String("fields", "", "comma separated record fields to keep, gjson paths allowed")
	format := fs.String("format", formatText, "output format: text, json, pretty or markdown")
	meta := fs.Bool("meta", false, "print the Avro header metadata instead of the records")
	limit := fs.Int("limit", 0, "print at most this many records, counted from the end (0 prints all)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, errors.New("expected exactly one snapshot directory")
	}

	o := options{
		dir:     fs.Arg(0),
		backend: *backend,
		kind:    snapshot.Kind(*kind),
		format:  *format,
		meta:    *meta,
		limit:   *limit,
	}
	if !slices.Contains(snapshot.Kinds, o.kind) {
		return options{}, fmt.Errorf("unknown log %q", *kind)
	}
	if !slices.Contains([]string{formatText, formatJSON, formatPretty, formatMarkdown}, o.format) {
		return options{}, fmt.Errorf("unknown format %q", o.format)
	}
	if *fields != "" {
		for _, f := range strings.Split(*fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				o.fields = append(o.fields, f)
			}
		}
	}
	if o.backend == "" {
		o.backend = detectBackend(o.dir)
	}
	return o, nil
}

func detectBackend(dir string) string {
	if _, err := os.Stat(filepath.Join(dir, snapshot.SQLiteFile)); err == nil {
		return config.SnapshotSQLite
	}
	return config.SnapshotAvro
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	if o.meta {
		if o.backend != config.SnapshotAvro {
			return errors.New("metadata is only stored in avro logs")
		}
		meta, err := snapshot.AvroMetadata(snapshot.AvroPath(o.dir, o.kind))
		if err != nil {
			return err
		}
		printMeta(stdout, meta)
		return nil
	}

	records, err := readRecords(ctx, o)
	if err != nil {
		return err
	}
	if o.limit > 0 && len(records) > o.limit {
		records = records[len(records)-o.limit:]
	}

	docs := make([][]byte, 0, len(records))
	for _, rec := range records {
		doc, err := project(rec, o.fields)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	return render(stdout, o, docs)
}

func readRecords(ctx context.Context, o options) ([]map[string]any, error) {
	switch o.backend {
	case config.SnapshotAvro:
		return snapshot.ReadAvro[map[string]any](snapshot.AvroPath(o.dir, o.kind))
	case config.SnapshotSQLite:
		return snapshot.ReadSQLite[map[string]any](ctx, filepath.Join(o.dir, snapshot.SQLiteFile), o.kind)
	default:
		return nil, fmt.Errorf("unknown backend %q", o.backend)
	}
}

// project encodes a record as JSON keeping only the given fields, in the given order.
// Missing fields are left out.
func project(rec map[string]any, fields []string) ([]byte, error) {
	full, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if len(fields) == 0 {
		return full, nil
	}
	out := []byte(`{}`)
	for _, field := range fields {
		v := gjson.GetBytes(full, field)
		if !v.Exists() {
			continue
		}
		out, err = sjson.SetRawBytes(out, escapePath(field), []byte(v.Raw))
		if err != nil {
			return nil, fmt.Errorf("failed to project %s: %w", field, err)
		}
	}
	return out, nil
}

// escapePath keeps a nested gjson path as one flat key in the projection.
func escapePath(field string) string {
	return strings.ReplaceAll(field, ".", `\.`)
}

func render(w io.Writer, o options, docs [][]byte) error {
	switch o.format {
	case formatJSON:
		for _, doc := range docs {
			if _, err := fmt.Fprintf(w, "%s\n", doc); err != nil {
				return err
			}
		}
		return nil
	case formatPretty:
		printer := pp.New()
		printer.SetOutput(w)
		printer.SetColoringEnabled(!color.NoColor)
		for _, doc := range docs {
			var v map[string]any
			if err := json.Unmarshal(doc, &v); err != nil {
				return err
			}
			if _, err := printer.Println(v); err != nil {
				return err
			}
		}
		return nil
	case formatMarkdown:
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
		if err != nil {
			return err
		}
		out, err := renderer.Render(markdownTable(o.kind, docs))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return renderText(w, o.kind, docs)
	}
}

func renderText(w io.Writer, kind snapshot.Kind, docs [][]byte) error {
	header := color.New(color.FgCyan, color.Bold)
	key := color.New(color.FgYellow)
	if _, err := header.Fprintf(w, "%s: %d records\n", kind, len(docs)); err != nil {
		return err
	}
	for i, doc := range docs {
		if _, err := header.Fprintf(w, "#%d\n", i+1); err != nil {
			return err
		}
		var ferr error
		gjson.ParseBytes(doc).ForEach(func(k, v gjson.Result) bool {
			_, ferr = fmt.Fprintf(w, "  %s %s\n", key.Sprint(k.String()+":"), v.String())
			return ferr == nil
		})
		if ferr != nil {
			return ferr
		}
	}
	return nil
}

func markdownTable(kind snapshot.Kind, docs [][]byte) string {
	var columns []string
	for _, doc := range docs {
		gjson.ParseBytes(doc).ForEach(func(k, _ gjson.Result) bool {
			if !slices.Contains(columns, k.String()) {
				columns = append(columns, k.String())
			}
			return true
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", kind)
	if len(columns) == 0 {
		b.WriteString("_no records_\n")
		return b.String()
	}
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, doc := range docs {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = strings.ReplaceAll(gjson.GetBytes(doc, escapePath(c)).String(), "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func printMeta(w io.Writer, meta map[string]string) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	key := color.New(color.FgYellow)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %s\n", key.Sprint(k+":"), meta[k])
	}
}
