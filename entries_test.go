package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerUser(t *testing.T, r http.Handler, subject string) string {
	t.Helper()
	token := testToken(t, subject)
	rec := performRequest(r, http.MethodPost, "/api/users", nil, token, "")
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rec.Code)
	return token
}

func postEntry(t *testing.T, r http.Handler, token string, entry map[string]any) *bytes.Buffer {
	t.Helper()
	body, _ := json.Marshal(entry)
	rec := performRequest(r, http.MethodPost, "/api/entries", bytes.NewBuffer(body), token, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return rec.Body
}

func TestAddEntryMissingFields(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|add")

	cases := []map[string]any{
		{},
		{"title": "Test title"},
		{"date": "2023-02-22"},
		{"title": "Test title", "date": "2023-02-22"},
		{"title": "Test title", "description": "something"},
		{"description": "something", "date": "2023-02-22"},
	}
	for _, body := range cases {
		b, _ := json.Marshal(body)
		rec := performRequest(r, http.MethodPost, "/api/entries", bytes.NewBuffer(b), token, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %v", body)
	}
}

func TestAddEntryValidationMessages(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|validate")

	cases := []struct {
		body    map[string]any
		message string
	}{
		{map[string]any{"title": "", "date": "2023-02-22", "description": "x"}, "Title cannot be empty string"},
		{map[string]any{"title": "T", "date": "invalid", "description": "x"}, "Invalid date format"},
		{map[string]any{"title": "T", "date": "2023-02-22", "description": ""}, "Description cannot be empty string"},
		{map[string]any{"title": "T", "date": "2023-02-22", "description": "---"}, "Description has no meaningful content"},
	}
	for _, tc := range cases {
		b, _ := json.Marshal(tc.body)
		rec := performRequest(r, http.MethodPost, "/api/entries", bytes.NewBuffer(b), token, "application/json")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tc.message, decodeBody(t, rec)["error"])
	}
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|roundtrip")

	created := postEntry(t, r, token, map[string]any{
		"title":       "Test Title",
		"date":        "2023-02-22",
		"description": "Test Description",
	})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(created.Bytes(), &entry))
	require.NotZero(t, entry["id"])

	rec := performRequest(r, http.MethodGet, fmt.Sprintf("/api/entries/%v", entry["id"]), nil, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeBody(t, rec)
	assert.Equal(t, "Test Title", fetched["title"])
	assert.Equal(t, "2023-02-22T00:00:00Z", fetched["date"])
	assert.Equal(t, "Test Description", fetched["description"])
	assert.Nil(t, fetched["updated_at"])
}

func TestGetEntryIDValidation(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|ids")

	rec := performRequest(r, http.MethodGet, "/api/entries/dne", nil, token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid entry ID", decodeBody(t, rec)["error"])

	rec = performRequest(r, http.MethodGet, "/api/entries/5", nil, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Entry not found for target user", decodeBody(t, rec)["error"])
}

func TestOwnershipNeverLeaks(t *testing.T) {
	r, _ := newTestApp(t)
	owner := registerUser(t, r, "auth0|owner")
	other := registerUser(t, r, "auth0|other")

	created := postEntry(t, r, owner, map[string]any{
		"title": "Private", "date": "2023-02-22", "description": "mine",
	})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(created.Bytes(), &entry))
	path := fmt.Sprintf("/api/entries/%v", entry["id"])

	rec := performRequest(r, http.MethodGet, path, nil, other, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	patch, _ := json.Marshal(map[string]any{"title": "Stolen"})
	rec = performRequest(r, http.MethodPatch, path, bytes.NewBuffer(patch), other, "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(r, http.MethodDelete, path, nil, other, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// still intact for the owner
	rec = performRequest(r, http.MethodGet, path, nil, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Private", decodeBody(t, rec)["title"])
}

func TestPartialUpdate(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|patch")

	created := postEntry(t, r, token, map[string]any{
		"title": "Before", "date": "2023-02-22", "description": "Original text",
	})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(created.Bytes(), &entry))
	path := fmt.Sprintf("/api/entries/%v", entry["id"])

	patch, _ := json.Marshal(map[string]any{"title": "After"})
	rec := performRequest(r, http.MethodPatch, path, bytes.NewBuffer(patch), token, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Entry updated successfully.", body["message"])

	updated := body["entry"].(map[string]any)
	assert.Equal(t, "After", updated["title"])
	assert.Equal(t, "2023-02-22T00:00:00Z", updated["date"])
	assert.Equal(t, "Original text", updated["description"])
	assert.NotNil(t, updated["updated_at"])
}

func TestUpdateWithNoFields(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|nofields")

	created := postEntry(t, r, token, map[string]any{
		"title": "Same", "date": "2023-02-22", "description": "Untouched",
	})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(created.Bytes(), &entry))
	path := fmt.Sprintf("/api/entries/%v", entry["id"])

	rec := performRequest(r, http.MethodPatch, path, nil, token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = performRequest(r, http.MethodGet, path, nil, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeBody(t, rec)
	assert.Equal(t, "Untouched", fetched["description"])
	assert.Nil(t, fetched["updated_at"])
}

func TestUpdateInvalidFields(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|badpatch")

	created := postEntry(t, r, token, map[string]any{
		"title": "T", "date": "2023-02-22", "description": "D",
	})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(created.Bytes(), &entry))
	path := fmt.Sprintf("/api/entries/%v", entry["id"])

	for _, body := range []map[string]any{
		{"date": "dne"},
		{"title": ""},
		{"description": ""},
	} {
		b, _ := json.Marshal(body)
		rec := performRequest(r, http.MethodPatch, path, bytes.NewBuffer(b), token, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %v", body)
	}
}

func TestDeleteEntry(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|delete")

	created := postEntry(t, r, token, map[string]any{
		"title": "Gone soon", "date": "2023-02-22", "description": "bye",
	})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(created.Bytes(), &entry))
	path := fmt.Sprintf("/api/entries/%v", entry["id"])

	rec := performRequest(r, http.MethodDelete, path, nil, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Entry deleted successfully.", decodeBody(t, rec)["message"])

	rec = performRequest(r, http.MethodDelete, path, nil, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(r, http.MethodGet, path, nil, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func addEntries(t *testing.T, r *gin.Engine, token string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		postEntry(t, r, token, map[string]any{
			"title":       fmt.Sprintf("Test Entry %d", i+1),
			"date":        fmt.Sprintf("2023-02-%02d", i+1),
			"description": fmt.Sprintf("Description for entry %d", i+1),
		})
	}
}

func paginationOf(t *testing.T, body map[string]any) (entries []any, pagination map[string]any) {
	t.Helper()
	entries = body["entries"].([]any)
	pagination = body["pagination"].(map[string]any)
	return entries, pagination
}

func TestGetEntriesEmpty(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|empty")

	rec := performRequest(r, http.MethodGet, "/api/entries", nil, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries, pagination := paginationOf(t, decodeBody(t, rec))
	assert.Empty(t, entries)
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(20), pagination["limit"])
	assert.Equal(t, float64(0), pagination["totalPages"])
	assert.Equal(t, float64(0), pagination["totalResults"])
}

func TestGetEntriesInvalidParams(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|params")

	for _, q := range []string{"?page=not-a-number", "?limit=not-a-number", "?limit=0", "?page=0", "?page=-1"} {
		rec := performRequest(r, http.MethodGet, "/api/entries"+q, nil, token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query: %s", q)
	}
}

func TestGetEntriesPagination(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|paginate")
	addEntries(t, r, token, 3)

	cases := []struct {
		query               string
		wantLen             int
		page, limit         float64
		totalPages, results float64
	}{
		{"?page=1&limit=2", 2, 1, 2, 2, 3},
		{"?page=2&limit=2", 1, 2, 2, 2, 3},
		{"?page=3&limit=2", 0, 3, 2, 2, 3},
		{"?limit=1", 1, 1, 1, 3, 3},
		{"?limit=1000", 3, 1, 1000, 1, 3},
	}
	for _, tc := range cases {
		rec := performRequest(r, http.MethodGet, "/api/entries"+tc.query, nil, token, "")
		require.Equal(t, http.StatusOK, rec.Code, "query: %s", tc.query)
		entries, pagination := paginationOf(t, decodeBody(t, rec))
		assert.Len(t, entries, tc.wantLen, "query: %s", tc.query)
		assert.Equal(t, tc.page, pagination["page"], "query: %s", tc.query)
		assert.Equal(t, tc.limit, pagination["limit"], "query: %s", tc.query)
		assert.Equal(t, tc.totalPages, pagination["totalPages"], "query: %s", tc.query)
		assert.Equal(t, tc.results, pagination["totalResults"], "query: %s", tc.query)
	}
}

func TestGetEntriesOrderedByDateDescending(t *testing.T) {
	r, _ := newTestApp(t)
	token := registerUser(t, r, "auth0|ordered")
	addEntries(t, r, token, 3)

	rec := performRequest(r, http.MethodGet, "/api/entries", nil, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries, _ := paginationOf(t, decodeBody(t, rec))
	require.Len(t, entries, 3)
	assert.Equal(t, "Test Entry 3", entries[0].(map[string]any)["title"])
	assert.Equal(t, "Test Entry 1", entries[2].(map[string]any)["title"])
}

func TestGetEntriesScopedToOwner(t *testing.T) {
	r, _ := newTestApp(t)
	owner := registerUser(t, r, "auth0|list-owner")
	other := registerUser(t, r, "auth0|list-other")
	addEntries(t, r, owner, 2)

	rec := performRequest(r, http.MethodGet, "/api/entries", nil, other, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries, pagination := paginationOf(t, decodeBody(t, rec))
	assert.Empty(t, entries)
	assert.Equal(t, float64(0), pagination["totalResults"])
}
