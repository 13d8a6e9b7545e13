package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mentislab/mentis/internal/models"
)

// ExportStore exposes every collected dataset for bulk export.
type ExportStore interface {
	ListParticipants() ([]*models.Participant, error)
	ListSociodemographics() ([]*models.Sociodemographic, error)
	ListAUTResponses() ([]*models.AUTResponse, error)
	ListFIQResponses() ([]*models.FIQResponse, error)
	ListDilemmaResponses() ([]*models.DilemmaResponse, error)
	ListScreenTimestamps() ([]*models.ScreenTimestamp, error)
}

// ExportSelection picks which datasets an export covers. The JSON field names
// are the dataset names used in both output formats.
type ExportSelection struct {
	Participants     bool `json:"participants"`
	Sociodemographic bool `json:"sociodemographic"`
	AUTResponses     bool `json:"autResponses"`
	FIQResponses     bool `json:"fiqResponses"`
	DilemmaResponses bool `json:"dilemmaResponses"`
	Timestamps       bool `json:"timestamps"`
}

// Any reports whether at least one dataset is selected.
func (sel ExportSelection) Any() bool {
	return sel.Participants || sel.Sociodemographic || sel.AUTResponses ||
		sel.FIQResponses || sel.DilemmaResponses || sel.Timestamps
}

// ExportService assembles admin data exports. CSV output is one section per
// selected dataset: a `# <dataset>` line, a header row, then one line per row
// with JSON-quoted comma-separated values; sections are separated by a blank
// line and empty datasets are skipped. JSON output is a single object keyed
// by dataset name with arrays of raw row objects, empty datasets included.
type ExportService struct {
	store ExportStore
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{store: store}
}

// dataset pairs a name with its row loader; slice order fixes section order.
type dataset struct {
	name     string
	selected bool
	load     func() ([]map[string]any, error)
}

func (s *ExportService) datasets(sel ExportSelection) []dataset {
	return []dataset{
		{"participants", sel.Participants, func() ([]map[string]any, error) {
			return rowMaps(s.store.ListParticipants())
		}},
		{"sociodemographic", sel.Sociodemographic, func() ([]map[string]any, error) {
			return rowMaps(s.store.ListSociodemographics())
		}},
		{"autResponses", sel.AUTResponses, func() ([]map[string]any, error) {
			return rowMaps(s.store.ListAUTResponses())
		}},
		{"fiqResponses", sel.FIQResponses, func() ([]map[string]any, error) {
			return rowMaps(s.store.ListFIQResponses())
		}},
		{"dilemmaResponses", sel.DilemmaResponses, func() ([]map[string]any, error) {
			return rowMaps(s.store.ListDilemmaResponses())
		}},
		{"timestamps", sel.Timestamps, func() ([]map[string]any, error) {
			return rowMaps(s.store.ListScreenTimestamps())
		}},
	}
}

// ExportJSON returns the selected datasets as raw row objects.
func (s *ExportService) ExportJSON(sel ExportSelection) (map[string][]map[string]any, error) {
	if !sel.Any() {
		return nil, NewInvalidError("no datasets selected")
	}
	out := map[string][]map[string]any{}
	for _, ds := range s.datasets(sel) {
		if !ds.selected {
			continue
		}
		rows, err := ds.load()
		if err != nil {
			return nil, err
		}
		out[ds.name] = rows
	}
	return out, nil
}

// ExportCSV renders the selected datasets in the sectioned CSV format.
func (s *ExportService) ExportCSV(sel ExportSelection) ([]byte, error) {
	if !sel.Any() {
		return nil, NewInvalidError("no datasets selected")
	}
	var sections []string
	for _, ds := range s.datasets(sel) {
		if !ds.selected {
			continue
		}
		rows, err := ds.load()
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		sections = append(sections, csvSection(ds.name, rows))
	}
	return []byte(strings.Join(sections, "\n\n")), nil
}

func csvSection(name string, rows []map[string]any) string {
	headers := columnNames(rows)
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(name)
	b.WriteByte('\n')
	b.WriteString(strings.Join(headers, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		cells := make([]string, 0, len(headers))
		for _, h := range headers {
			cells = append(cells, jsonCell(row[h]))
		}
		b.WriteString(strings.Join(cells, ","))
	}
	return b.String()
}

// columnNames returns the sorted union of keys across rows, so rows with
// omitted optional fields still line up.
func columnNames(rows []map[string]any) []string {
	set := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// jsonCell JSON-quotes a single cell; absent values become an empty string.
func jsonCell(v any) string {
	if v == nil {
		v = ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// rowMaps converts typed rows into raw objects via their JSON form.
func rowMaps[T any](rows []*T, err error) ([]map[string]any, error) {
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal export row: %w", err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("decode export row: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}
