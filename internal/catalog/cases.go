package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Case is one evaluation item: the ground-truth variant plus one query
// text per description mode. Procedures carries the serialized
// procedure set from the batch file, used only when the variant is
// missing from the catalog.
type Case struct {
	Variant      string
	Descriptions map[string]string
	Procedures   map[string]struct{}
}

// CaseBatch is a parsed query batch: the cases and the ordered list of
// description modes present in the file.
type CaseBatch struct {
	Cases []Case
	Modes []string
}

// LoadCases reads a pipe-delimited patient-case file. The file has one
// row per case with an original_variant column, one or more desc_*
// columns (each an independent evaluation mode), and an optional
// serialized procedure column.
func LoadCases(path string) (*CaseBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open cases %s", path)
	}
	defer f.Close()
	return ReadCases(f)
}

// ReadCases parses a patient-case stream. See LoadCases.
func ReadCases(r io.Reader) (*CaseBatch, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read cases header")
	}

	variantIdx, procIdx := -1, -1
	modeIdx := make(map[string]int)
	for i, name := range header {
		switch normalized := strings.ToLower(strings.TrimSpace(name)); {
		case normalized == "original_variant" || normalized == "variant":
			variantIdx = i
		case normalized == "procedure" || normalized == "procedure_json":
			procIdx = i
		case strings.HasPrefix(normalized, "desc"):
			modeIdx[normalized] = i
		}
	}
	if variantIdx < 0 {
		return nil, eris.Errorf("catalog: cases header missing original_variant: %v", header)
	}
	if len(modeIdx) == 0 {
		return nil, eris.Errorf("catalog: cases header has no desc_* columns: %v", header)
	}

	modes := make([]string, 0, len(modeIdx))
	for mode := range modeIdx {
		modes = append(modes, mode)
	}
	sort.Strings(modes)

	batch := &CaseBatch{Modes: modes}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read cases row")
		}

		variant := field(record, variantIdx)
		if variant == "" {
			continue
		}

		c := Case{
			Variant:      variant,
			Descriptions: make(map[string]string, len(modes)),
		}
		for _, mode := range modes {
			if text := field(record, modeIdx[mode]); text != "" {
				c.Descriptions[mode] = text
			}
		}
		if procIdx >= 0 {
			c.Procedures = ParseProcedures(field(record, procIdx))
		}
		batch.Cases = append(batch.Cases, c)
	}

	return batch, nil
}

// SelfCases builds a batch that queries every catalog entry with its
// own variant text under a single "variant" mode. This measures
// cross-modal retrieval of the catalog against itself.
func SelfCases(c *Catalog) *CaseBatch {
	batch := &CaseBatch{Modes: []string{"variant"}}
	for _, entry := range c.Entries() {
		batch.Cases = append(batch.Cases, Case{
			Variant:      entry.Variant,
			Descriptions: map[string]string{"variant": entry.Variant},
		})
	}
	return batch
}
