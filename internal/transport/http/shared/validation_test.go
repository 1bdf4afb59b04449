package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchPayload struct {
	EmployeeIDs []int64 `json:"employeeIds" validate:"required,min=1,dive,gt=0"`
}

func TestValidatorStructUsesJSONNames(t *testing.T) {
	v := NewValidator()
	v.Struct(batchPayload{})
	require.True(t, v.HasIssues())
	assert.Equal(t, "employeeIds", v.Issues()[0].Field)
	assert.Equal(t, "is required", v.Issues()[0].Reason)

	v = NewValidator()
	v.Struct(batchPayload{EmployeeIDs: []int64{1, -2}})
	require.True(t, v.HasIssues())
	assert.Equal(t, "employeeIds[1]", v.Issues()[0].Field)

	v = NewValidator()
	v.Struct(batchPayload{EmployeeIDs: []int64{1, 2}})
	assert.False(t, v.HasIssues())
}

func TestValidatorEnum(t *testing.T) {
	v := NewValidator()
	v.Enum("format", "csv", []string{"csv", "json"}, "must be csv or json")
	v.Enum("format", "", []string{"csv", "json"}, "must be csv or json")
	assert.False(t, v.HasIssues())

	v.Enum("format", "xml", []string{"csv", "json"}, "must be csv or json")
	assert.True(t, v.HasIssues())
}

func TestRejectWritesValidationEnvelope(t *testing.T) {
	v := NewValidator()
	v.Add("status", "must be one of Active, Inactive, OnLeave")
	rec := httptest.NewRecorder()

	require.True(t, v.Reject(rec, "req-9"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body["error"])
	assert.Equal(t, "status must be one of Active, Inactive, OnLeave", body["message"])
}

func TestDecodeJSON(t *testing.T) {
	var payload batchPayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"employeeIds":[1,2],"extra":true}`))
	require.NoError(t, DecodeJSON(req, &payload))
	assert.Equal(t, []int64{1, 2}, payload.EmployeeIDs)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"employeeIds":["a"]}`))
	assert.Error(t, DecodeJSON(req, &payload))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"employeeIds":[1]} {}`))
	assert.Error(t, DecodeJSON(req, &payload))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-1", nil)
	p := ParsePagination(req, 20, 100)
	assert.Equal(t, Pagination{Limit: 100, Offset: 0}, p)

	req = httptest.NewRequest(http.MethodGet, "/?limit=5&offset=10", nil)
	assert.Equal(t, Pagination{Limit: 5, Offset: 10}, ParsePagination(req, 20, 100))
}
