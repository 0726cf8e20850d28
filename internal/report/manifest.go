package report

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/triage-labs/acr-eval/internal/model"
)

// Manifest is the YAML record written next to a run's CSV outputs. It
// captures enough to reproduce the run: inputs, encoder identity, and
// the template version used for catalog embedding texts.
type Manifest struct {
	RunID           string               `yaml:"run_id"`
	CreatedAt       time.Time            `yaml:"created_at"`
	CatalogPath     string               `yaml:"catalog_path"`
	CasesPath       string               `yaml:"cases_path,omitempty"`
	Encoder         string               `yaml:"encoder"`
	TemplateVersion string               `yaml:"template_version"`
	CatalogEntries  int                  `yaml:"catalog_entries"`
	Summaries       []model.BatchSummary `yaml:"summaries"`
}

// WriteManifest serializes the manifest as YAML.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return eris.Wrap(err, "report: encode manifest")
	}
	return eris.Wrap(enc.Close(), "report: close manifest encoder")
}

// ReadManifest parses a previously written manifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, eris.Wrap(err, "report: decode manifest")
	}
	return m, nil
}
