// Package synth generates synthetic patient-case descriptions for
// catalog variants, graded from near-verbatim to distant paraphrase.
package synth

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/pkg/anthropic"
)

const systemPrompt = `You are a clinician writing free-text descriptions of patient presentations.
Given a clinical condition and scenario variant, write three descriptions of a patient matching that scenario:
- desc_1: a close rephrasing, keeping most clinical vocabulary
- desc_2: a moderate rephrasing, using everyday clinical language
- desc_3: a distant rephrasing, as a layperson or triage note might put it
Respond with a single JSON object with keys desc_1, desc_2, desc_3 and no other text.`

// Descriptions holds the three rephrasing tiers for one variant, from
// closest to the catalog wording to furthest.
type Descriptions struct {
	Closest  string `json:"desc_1"`
	Moderate string `json:"desc_2"`
	Distant  string `json:"desc_3"`
}

// Generator produces synthetic descriptions via the Anthropic API.
type Generator struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewGenerator creates a generator using the given model.
func NewGenerator(client anthropic.Client, model string) *Generator {
	return &Generator{
		client:      client,
		model:       model,
		temperature: 0.8,
	}
}

// Describe generates the three description tiers for one variant.
func (g *Generator) Describe(ctx context.Context, condition, variant string) (*Descriptions, error) {
	prompt := fmt.Sprintf("Condition: %s\nClinical scenario: %s", condition, variant)

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   1024,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &g.temperature,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "synth: describe %q", variant)
	}
	resp.Usage.Log(g.model, "describe")

	descriptions, err := parseDescriptions(resp.Text())
	if err != nil {
		return nil, eris.Wrapf(err, "synth: parse response for %q", variant)
	}
	return descriptions, nil
}

// parseDescriptions extracts the JSON object from a model response,
// tolerating surrounding prose and markdown fences.
func parseDescriptions(text string) (*Descriptions, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("no JSON object in response: %.80s", text)
	}

	var d Descriptions
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return nil, eris.Wrap(err, "unmarshal descriptions")
	}
	if d.Closest == "" || d.Moderate == "" || d.Distant == "" {
		return nil, eris.New("response missing one or more description tiers")
	}
	return &d, nil
}

// WriteCases generates descriptions for up to limit catalog entries
// (all when limit <= 0) and writes them as a pipe-delimited case file.
// Entries whose generation fails are logged and skipped.
func (g *Generator) WriteCases(ctx context.Context, cat *catalog.Catalog, w io.Writer, limit int) error {
	writer := csv.NewWriter(w)
	writer.Comma = catalog.Delimiter

	if err := writer.Write([]string{"original_variant", "desc_1", "desc_2", "desc_3", "procedure"}); err != nil {
		return eris.Wrap(err, "synth: write header")
	}

	written := 0
	for _, entry := range cat.Entries() {
		if limit > 0 && written >= limit {
			break
		}
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "synth: write cases")
		}

		condition, _ := cat.ConditionOf(entry.Variant)
		descriptions, err := g.Describe(ctx, condition, entry.Variant)
		if err != nil {
			zap.L().Warn("synth: skipping variant",
				zap.String("variant", entry.Variant),
				zap.Error(err),
			)
			continue
		}

		procJSON, err := json.Marshal(entry.Procedures)
		if err != nil {
			return eris.Wrapf(err, "synth: marshal procedures for %q", entry.Variant)
		}

		row := []string{entry.Variant, descriptions.Closest, descriptions.Moderate, descriptions.Distant, string(procJSON)}
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "synth: write row")
		}
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return eris.Wrap(err, "synth: flush cases")
	}
	zap.L().Info("synth: cases written", zap.Int("count", written))
	return nil
}
