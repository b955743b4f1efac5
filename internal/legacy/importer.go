package legacy

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var delimiters = []rune{',', ';', '\t', '|'}

// Sink replaces a table's contents with rows.
type Sink interface {
	Replace(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// FileResult reports what happened to one configured file.
type FileResult struct {
	File    string `json:"file"`
	Table   string `json:"table"`
	Mapped  int    `json:"mapped_columns"`
	Rows    int64  `json:"rows"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Result summarises an import run.
type Result struct {
	RunID      uuid.UUID    `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Files      []FileResult `json:"files"`
}

// Rows sums loaded rows across files.
func (r Result) Rows() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Rows
	}
	return n
}

// Importer loads every mapped file from a directory.
type Importer struct {
	mapping Mapping
	dir     fs.FS
	sink    Sink
	logger  *slog.Logger
}

// NewImporter builds an importer reading files from dir.
func NewImporter(mapping Mapping, dir fs.FS, sink Sink, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{mapping: mapping, dir: dir, sink: sink, logger: logger}
}

// NewDirImporter reads files from a path on disk.
func NewDirImporter(mapping Mapping, path string, sink Sink, logger *slog.Logger) *Importer {
	return NewImporter(mapping, os.DirFS(path), sink, logger)
}

// Run imports every configured file. Files that are missing or map no columns are
// skipped with a diagnostic and the run continues. A load failure aborts the run.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	logger := im.logger.With(slog.String("run_id", res.RunID.String()))

	for _, spec := range im.mapping.Files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fr, err := im.importFile(ctx, spec)
		res.Files = append(res.Files, fr)
		if err != nil {
			logger.Error("legacy import failed", slog.String("file", spec.File), slog.Any("error", err))
			return res, fmt.Errorf("import %s: %w", spec.File, err)
		}
		if fr.Skipped {
			logger.Warn("legacy file skipped", slog.String("file", spec.File), slog.String("reason", fr.Reason))
			continue
		}
		logger.Info("legacy file imported",
			slog.String("file", spec.File),
			slog.String("table", spec.Table),
			slog.Int("mapped_columns", fr.Mapped),
			slog.Int64("rows", fr.Rows))
	}
	res.FinishedAt = time.Now().UTC()
	return res, nil
}

func (im *Importer) importFile(ctx context.Context, spec FileSpec) (FileResult, error) {
	fr := FileResult{File: spec.File, Table: spec.Table}
	raw, err := fs.ReadFile(im.dir, spec.File)
	if errors.Is(err, fs.ErrNotExist) {
		fr.Skipped, fr.Reason = true, "file not found"
		return fr, nil
	}
	if err != nil {
		return fr, err
	}

	parsed, err := Parse(raw, spec, im.mapping.Overrides)
	if err != nil {
		fr.Skipped, fr.Reason = true, err.Error()
		return fr, nil
	}
	fr.Mapped = len(parsed.Columns)
	if fr.Mapped == 0 {
		fr.Skipped, fr.Reason = true, fmt.Sprintf("no columns mapped from headers %v", truncate(parsed.Headers, 10))
		return fr, nil
	}

	n, err := im.sink.Replace(ctx, spec.Table, parsed.Columns, parsed.Rows)
	if err != nil {
		return fr, err
	}
	fr.Rows = n
	return fr, nil
}

// Parsed is a cleaned file ready for loading.
type Parsed struct {
	Delimiter rune
	Headers   []string
	Columns   []string
	Rows      [][]any
}

// Parse decodes a CSV export. The delimiter is sniffed from the header line and the
// file is re-read with a comma when the sniffed delimiter maps no columns.
func Parse(raw []byte, spec FileSpec, overrides map[string]string) (Parsed, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	text := strings.ToValidUTF8(string(raw), "\uFFFD")

	delim := sniffDelimiter(text)
	p, err := parseWith(text, delim, spec, overrides)
	if err != nil {
		return Parsed{}, err
	}
	if len(p.Columns) == 0 && delim != ',' {
		return parseWith(text, ',', spec, overrides)
	}
	return p, nil
}

func parseWith(text string, delim rune, spec FileSpec, overrides map[string]string) (Parsed, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return Parsed{Delimiter: delim}, errors.New("empty file")
	}
	if err != nil {
		return Parsed{}, fmt.Errorf("read header: %w", err)
	}
	for i := range headers {
		headers[i] = CleanHeader(headers[i])
	}
	mapped := MapHeaders(headers, spec, overrides)
	p := Parsed{Delimiter: delim, Headers: headers}
	if len(mapped) == 0 {
		return p, nil
	}

	indexes := make([]int, 0, len(mapped))
	for i := range mapped {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		p.Columns = append(p.Columns, mapped[i].Name)
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Parsed{}, fmt.Errorf("read record: %w", err)
		}
		row := make([]any, len(indexes))
		for j, i := range indexes {
			if i < len(record) {
				row[j] = CleanValue(mapped[i].Type, record[i])
			}
		}
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
