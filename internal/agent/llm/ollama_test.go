package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahama1970/extractor-sub000/internal/models"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
)

func TestParseVerdict(t *testing.T) {
	merge, conf, err := parseVerdict(`{"merge": true, "confidence": 0.85}`)
	require.NoError(t, err)
	assert.True(t, merge)
	assert.Equal(t, 0.85, conf)
}

func TestParseVerdictWrappedInProse(t *testing.T) {
	response := "Sure! Here is my answer:\n```json\n{\"merge\": false, \"confidence\": 0.7}\n```\nHope that helps."

	merge, conf, err := parseVerdict(response)

	require.NoError(t, err)
	assert.False(t, merge)
	assert.Equal(t, 0.7, conf)
}

func TestParseVerdictNoJSON(t *testing.T) {
	_, _, err := parseVerdict("I cannot decide.")
	assert.Error(t, err)
}

func TestParseVerdictConfidenceOutOfRange(t *testing.T) {
	_, _, err := parseVerdict(`{"merge": true, "confidence": 1.5}`)
	assert.Error(t, err)
}

func twoCellTable() *models.Table {
	table := models.NewTable(0, models.NewBBox(0, 0, 100, 100))
	table.Cells = []*models.Cell{
		{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Lines: []string{"a"}},
		{Row: 0, Col: 1, RowSpan: 1, ColSpan: 1, Lines: []string{"b"}},
	}
	return table
}

func TestShouldMerge(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(generateResponse{
			Response: `{"merge": true, "confidence": 0.9}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	advisor := NewOllamaAdvisor(&Config{Endpoint: srv.URL, Model: "test-model"}, logger.NewTestLogger())

	merge, conf, err := advisor.ShouldMerge(context.Background(), twoCellTable(), twoCellTable())

	require.NoError(t, err)
	assert.True(t, merge)
	assert.Equal(t, 0.9, conf)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.Contains(t, gotReq.Prompt, "1 rows x 2 columns")
}

func TestShouldMergeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	advisor := NewOllamaAdvisor(&Config{Endpoint: srv.URL, Model: "test-model"}, logger.NewTestLogger())

	_, _, err := advisor.ShouldMerge(context.Background(), twoCellTable(), twoCellTable())

	assert.Error(t, err)
}
