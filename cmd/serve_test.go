package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/encoder"
	"github.com/triage-labs/acr-eval/internal/index"
	"github.com/triage-labs/acr-eval/internal/model"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	cat := catalog.New([]catalog.Row{
		{Condition: "Chest Pain", Variant: "Acute chest pain", Procedure: "CXR", Appropriateness: model.UsuallyAppropriate},
		{Condition: "Head Trauma", Variant: "Minor head trauma", Procedure: "CT head", Appropriateness: model.UsuallyAppropriate},
	})
	enc := encoder.NewLocal(64)
	idx := index.NewMemory(enc.Dimension())

	for _, entry := range cat.Entries() {
		condition, _ := cat.ConditionOf(entry.Variant)
		text := encoder.EmbeddingText(condition, entry.Variant)
		vec, err := enc.Encode(context.Background(), text)
		require.NoError(t, err)
		require.NoError(t, idx.Upsert(context.Background(), []model.EmbeddingRecord{
			{ID: entry.Variant, Vector: vec, SourceText: text},
		}))
	}

	return newRouter(cat, enc, idx)
}

func TestServeHealth(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeSearch(t *testing.T) {
	router := testRouter(t)

	body, _ := json.Marshal(map[string]any{
		"text": "Condition: Chest Pain | Clinical Scenario: Acute chest pain",
		"k":    2,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []model.QueryResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Acute chest pain", resp.Results[0].Retrieved.Variant)
	assert.InDelta(t, 0, resp.Results[0].Distance, 1e-6)
}

func TestServeSearchValidation(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader([]byte(`{"k":3}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader([]byte(`not json`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeCatalogLookup(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/catalog/Acute%20chest%20pain", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Condition string               `json:"condition"`
		Entry     *model.ScenarioEntry `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Chest Pain", resp.Condition)
	assert.Contains(t, resp.Entry.Procedures, "CXR")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/catalog/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
