package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailShape(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, http.StatusNotFound, "not_found", "employee not found", "req-1")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "not_found", body["error"])
	assert.Equal(t, "employee not found", body["message"])
	assert.Equal(t, "req-1", body["requestId"])
	assert.NotContains(t, body, "details")
}

func TestFailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusBadRequest, "missing_required_fields", "missing", map[string]any{"fields": []string{"tagName"}}, "")

	var body struct {
		Details struct {
			Fields []string `json:"fields"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"tagName"}, body.Details.Fields)
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "application/pdf", "cracha_Ana_1.pdf", []byte("%PDF"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cracha_Ana_1.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String())
}
