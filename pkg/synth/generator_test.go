package synth

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/model"
	"github.com/triage-labs/acr-eval/pkg/anthropic"
)

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestParseDescriptions(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    *Descriptions
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"desc_1":"a","desc_2":"b","desc_3":"c"}`,
			want: &Descriptions{Closest: "a", Moderate: "b", Distant: "c"},
		},
		{
			name: "fenced json with prose",
			text: "Here you go:\n```json\n{\"desc_1\":\"a\",\"desc_2\":\"b\",\"desc_3\":\"c\"}\n```",
			want: &Descriptions{Closest: "a", Moderate: "b", Distant: "c"},
		},
		{
			name:    "no json",
			text:    "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "missing tier",
			text:    `{"desc_1":"a","desc_2":"b"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			text:    `{"desc_1": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDescriptions(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	mc := new(anthropic.MockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "Acute chest pain")
	})).Return(textResponse(`{"desc_1":"close","desc_2":"moderate","desc_3":"distant"}`), nil)

	g := NewGenerator(mc, "claude-sonnet-4-5-20250929")
	d, err := g.Describe(context.Background(), "Chest Pain", "Acute chest pain")
	require.NoError(t, err)
	assert.Equal(t, "close", d.Closest)
	assert.Equal(t, "distant", d.Distant)

	mc.AssertExpectations(t)
}

func TestWriteCases(t *testing.T) {
	cat := catalog.New([]catalog.Row{
		{Condition: "Chest Pain", Variant: "Acute chest pain", Procedure: "CXR", Appropriateness: model.UsuallyAppropriate},
		{Condition: "Head Trauma", Variant: "Minor head trauma", Procedure: "CT head", Appropriateness: model.UsuallyAppropriate},
	})

	mc := new(anthropic.MockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"desc_1":"one","desc_2":"two","desc_3":"three"}`), nil)

	g := NewGenerator(mc, "claude-sonnet-4-5-20250929")

	var buf bytes.Buffer
	require.NoError(t, g.WriteCases(context.Background(), cat, &buf, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "original_variant|desc_1|desc_2|desc_3|procedure", lines[0])
	assert.Contains(t, lines[1], "Acute chest pain|one|two|three|")
	assert.Contains(t, lines[1], `CXR`)

	// The output round-trips through the case reader.
	batch, err := catalog.ReadCases(&buf)
	require.NoError(t, err)
	require.Len(t, batch.Cases, 2)
	assert.Equal(t, []string{"desc_1", "desc_2", "desc_3"}, batch.Modes)
	assert.Contains(t, batch.Cases[0].Procedures, "CXR")
}

func TestWriteCasesSkipsFailedVariant(t *testing.T) {
	cat := catalog.New([]catalog.Row{
		{Condition: "Chest Pain", Variant: "Acute chest pain", Procedure: "CXR", Appropriateness: model.UsuallyAppropriate},
		{Condition: "Head Trauma", Variant: "Minor head trauma", Procedure: "CT head", Appropriateness: model.UsuallyAppropriate},
	})

	mc := new(anthropic.MockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, "Acute chest pain")
	})).Return(nil, eris.New("rate limited"))
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"desc_1":"one","desc_2":"two","desc_3":"three"}`), nil)

	g := NewGenerator(mc, "claude-sonnet-4-5-20250929")

	var buf bytes.Buffer
	require.NoError(t, g.WriteCases(context.Background(), cat, &buf, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Minor head trauma")
}

func TestWriteCasesLimit(t *testing.T) {
	cat := catalog.New([]catalog.Row{
		{Condition: "A", Variant: "v1", Procedure: "P"},
		{Condition: "B", Variant: "v2", Procedure: "P"},
		{Condition: "C", Variant: "v3", Procedure: "P"},
	})

	mc := new(anthropic.MockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"desc_1":"one","desc_2":"two","desc_3":"three"}`), nil)

	g := NewGenerator(mc, "claude-sonnet-4-5-20250929")

	var buf bytes.Buffer
	require.NoError(t, g.WriteCases(context.Background(), cat, &buf, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3) // header + 2 cases
}
