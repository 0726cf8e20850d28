package encoder

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TemplateVersion names the canonical embedding-text template. Bump it
// whenever the format below changes: indexed vectors built under one
// version cannot be queried under another.
const TemplateVersion = "v1"

// catalogTemplate combines a catalog entry's condition and variant into
// the text that gets embedded at index-build time. Queries embed raw
// description text; only the catalog side uses the template. Both paths
// share NormalizeText.
const catalogTemplate = "Condition: %s | Clinical Scenario: %s"

// EmbeddingText renders the canonical index-side text for an entry.
func EmbeddingText(condition, variant string) string {
	return fmt.Sprintf(catalogTemplate, NormalizeText(condition), NormalizeText(variant))
}

// NormalizeText collapses whitespace and applies NFC so that visually
// identical clinical text always embeds to the same vector.
func NormalizeText(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}
