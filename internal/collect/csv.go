package collect

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
)

// CSVSource reads bulk call exports. Path may be a single file or a
// directory whose *.csv files are read in name order.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSV source for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string { return filepath.Base(s.path) }

// Collect reads every row of every file.
func (s *CSVSource) Collect(_ context.Context) ([]Item, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		rows, err := ReadCSV(f, filepath.Base(path))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		log.Printf("Read %d rows from %s", len(rows), path)
		items = append(items, rows...)
	}
	return items, nil
}

func (s *CSVSource) files() ([]string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{s.path}, nil
	}
	files, err := filepath.Glob(filepath.Join(s.path, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadCSV parses a CSV with a header row. Columns are mapped onto call
// metadata; the transcript column holds the call text. Blank rows are
// skipped.
func ReadCSV(r io.Reader, source string) ([]Item, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var items []Item
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) && h != "" {
				fields[h] = strings.TrimSpace(row[i])
			}
		}
		if blank(fields) {
			continue
		}
		transcript := fields["transcript"]
		delete(fields, "transcript")

		items = append(items, Item{
			SourceURL:  fields["audio_url"],
			Transcript: transcript,
			Metadata:   calls.MetadataFromFields(fields),
			Source:     source,
		})
	}
	return items, nil
}

func blank(fields map[string]string) bool {
	for _, v := range fields {
		if v != "" {
			return false
		}
	}
	return true
}
