// Package catalog loads the ACR reference catalog and the synthetic
// patient-case batches from delimited files and exposes them as typed,
// immutable lookups.
package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/triage-labs/acr-eval/internal/model"
)

// Delimiter is the field separator used by the ACR dataset exports.
const Delimiter = '|'

// Catalog is the immutable in-memory reference table. Entries keep
// their file order so downstream tie-breaking stays deterministic.
type Catalog struct {
	entries     map[string]*model.ScenarioEntry
	order       []string
	byCondition map[string][]string
}

// Row is one (condition, variant, procedure, appropriateness) record
// before grouping.
type Row struct {
	Condition       string
	Variant         string
	Procedure       string
	Appropriateness string
}

// New builds a catalog by grouping rows by variant. Rows with an empty
// variant are skipped; rows with an empty procedure contribute the
// entry but no procedure mapping.
func New(rows []Row) *Catalog {
	c := &Catalog{
		entries:     make(map[string]*model.ScenarioEntry),
		byCondition: make(map[string][]string),
	}
	for _, row := range rows {
		if row.Variant == "" {
			continue
		}
		entry, ok := c.entries[row.Variant]
		if !ok {
			entry = &model.ScenarioEntry{
				Condition:  row.Condition,
				Variant:    row.Variant,
				Procedures: make(map[string]string),
			}
			c.entries[row.Variant] = entry
			c.order = append(c.order, row.Variant)
			c.byCondition[row.Condition] = append(c.byCondition[row.Condition], row.Variant)
		}
		if row.Procedure != "" {
			entry.Procedures[row.Procedure] = row.Appropriateness
		}
	}
	return c
}

// Len returns the number of unique variants.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Entry returns the catalog entry for a variant.
func (c *Catalog) Entry(variant string) (*model.ScenarioEntry, bool) {
	entry, ok := c.entries[variant]
	return entry, ok
}

// ConditionOf returns the parent condition for a variant. Unknown
// variants report ok=false rather than an error; callers degrade to a
// no-match result.
func (c *Catalog) ConditionOf(variant string) (string, bool) {
	entry, ok := c.entries[variant]
	if !ok {
		return "", false
	}
	return entry.Condition, true
}

// Entries returns all entries in file order.
func (c *Catalog) Entries() []*model.ScenarioEntry {
	out := make([]*model.ScenarioEntry, 0, len(c.order))
	for _, variant := range c.order {
		out = append(out, c.entries[variant])
	}
	return out
}

// Conditions returns the distinct conditions and how many variants
// each one partitions.
func (c *Catalog) Conditions() map[string]int {
	out := make(map[string]int, len(c.byCondition))
	for condition, variants := range c.byCondition {
		out[condition] = len(variants)
	}
	return out
}

// Load reads a catalog file, dispatching on extension (.csv or .xlsx).
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return LoadCSV(path)
	}
}

// LoadCSV reads a pipe-delimited catalog export. The header row is
// matched by name, case-insensitively, so column order is free.
func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return nil, err
	}
	return New(rows), nil
}

// LoadXLSX reads the first sheet of an XLSX catalog export.
func LoadXLSX(path string) (*Catalog, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("catalog: %s has no sheets", path)
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return newFromRecords(records)
}

func readRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read row")
		}
		records = append(records, record)
	}

	rows, err := recordsToRows(records)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func newFromRecords(records [][]string) (*Catalog, error) {
	rows, err := recordsToRows(records)
	if err != nil {
		return nil, err
	}
	return New(rows), nil
}

// columns maps header names to field indexes.
type columns struct {
	condition       int
	variant         int
	procedure       int
	appropriateness int
}

func recordsToRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, eris.New("catalog: empty input")
	}

	cols, err := resolveColumns(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, Row{
			Condition:       field(record, cols.condition),
			Variant:         field(record, cols.variant),
			Procedure:       field(record, cols.procedure),
			Appropriateness: field(record, cols.appropriateness),
		})
	}
	return rows, nil
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{condition: -1, variant: -1, procedure: -1, appropriateness: -1}
	for i, name := range header {
		switch normalized := strings.ToLower(strings.TrimSpace(name)); {
		case normalized == "condition":
			cols.condition = i
		case normalized == "variant":
			cols.variant = i
		case normalized == "procedure":
			cols.procedure = i
		case strings.HasPrefix(normalized, "appropriateness"):
			cols.appropriateness = i
		}
	}
	if cols.condition < 0 || cols.variant < 0 {
		return cols, eris.Errorf("catalog: header missing condition/variant columns: %v", header)
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
