package journals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	internalShared "github.com/harborview-hms/harborview/internal/shared"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	svc, _, _, _ := newTestEngine(t)
	handler := NewHandler(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), svc)
	r := chi.NewRouter()
	r.Use(internalShared.ActorMiddleware)
	handler.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, body map[string]any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func validEntryBody() map[string]any {
	return map[string]any{
		"description": "front desk posting",
		"lines": []map[string]any{
			{"account_id": 1, "debit": "150.00"},
			{"account_id": 2, "credit": "150.00"},
		},
	}
}

func TestCreateEntryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/entries", validEntryBody(), map[string]string{"X-Actor-Id": "7"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, "JE-2026-0001", body["entry_no"])
	require.Equal(t, "150.00", body["total_debit"])
	require.Equal(t, "DRAFT", body["status"])
}

func TestCreateEntryEndpointAttributesActor(t *testing.T) {
	srv, svc := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/entries", validEntryBody(), map[string]string{"X-Actor-Id": "42"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	entry, err := svc.GetEntry(context.Background(), int64(body["id"].(float64)))
	require.NoError(t, err)
	require.Equal(t, int64(42), entry.CreatedBy)
	require.NotEmpty(t, entry.ClientRef)
}

func TestCreateEntryEndpointUnbalanced(t *testing.T) {
	srv, _ := newTestServer(t)

	body := validEntryBody()
	body["lines"] = []map[string]any{
		{"account_id": 1, "debit": "150.00"},
		{"account_id": 2, "credit": "100.00"},
	}
	resp, decoded := postJSON(t, srv.URL+"/entries", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, decoded["success"])
	require.Equal(t, "150", decoded["total_debit"])
	require.Equal(t, "100", decoded["total_credit"])
}

func TestCreateEntryEndpointRejectsUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t)

	body := validEntryBody()
	body["surprise"] = "field"
	resp, decoded := postJSON(t, srv.URL+"/entries", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, decoded["success"])
}

func TestGetEntryEndpointNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/entries/999")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePostedEntryEndpointConflict(t *testing.T) {
	srv, svc := newTestServer(t)

	entry, err := svc.CreateEntry(context.Background(), CreateEntryInput{
		Description: "posted",
		Lines:       balancedLines(),
		Status:      EntryStatusPosted,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/entries/%d", srv.URL, entry.ID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestInvalidAccountsEndpointPayload(t *testing.T) {
	registry := newFakeRegistry()
	registry.inactive[999] = true
	engine := NewService(newMemRepo(), registry, &recordedAudit{}, PostingConfig{})
	handler := NewHandler(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), engine)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	body := validEntryBody()
	body["lines"] = []map[string]any{
		{"account_id": 1, "debit": "150.00"},
		{"account_id": 999, "credit": "150.00"},
	}
	resp, decoded := postJSON(t, srv.URL+"/entries", body, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, decoded["success"])
	require.Equal(t, []any{float64(999)}, decoded["invalid_account_ids"])
}
