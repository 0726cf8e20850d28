package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestF1(t *testing.T) {
	tests := []struct {
		name      string
		precision float64
		recall    float64
		want      float64
	}{
		{"both zero", 0, 0, 0},
		{"perfect", 1, 1, 1},
		{"half half", 0.5, 0.5, 0.5},
		{"asymmetric", 1, 0.5, 2.0 / 3.0},
		{"zero precision", 0, 0.8, 0},
		{"zero recall", 0.8, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, F1(tt.precision, tt.recall), 1e-9)
		})
	}
}

func TestProcedureSet(t *testing.T) {
	entry := &ScenarioEntry{
		Condition: "Chest Pain",
		Variant:   "Acute chest pain. Initial imaging.",
		Procedures: map[string]string{
			"Radiography chest": UsuallyAppropriate,
			"CT chest":          MayBeAppropriate,
		},
	}

	set := entry.ProcedureSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "Radiography chest")
	assert.Contains(t, set, "CT chest")
}

func TestProcedureSetEmpty(t *testing.T) {
	var nilEntry *ScenarioEntry
	assert.Nil(t, nilEntry.ProcedureSet())
	assert.Nil(t, (&ScenarioEntry{Variant: "x"}).ProcedureSet())
}
