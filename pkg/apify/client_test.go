package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithBaseURL(srv.URL))
}

func TestStartActorRun(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantRunID  string
		wantErr    bool
		wantAPIErr bool
		wantStatus int
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/acts/vendor~scraper/runs", r.URL.Path)
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var input map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&input))

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]any{
					"data": Run{ID: "run-123", Status: StatusReady, DefaultDatasetID: "ds-123"},
				})
			},
			wantRunID: "run-123",
		},
		{
			name: "auth error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"type":"token-not-found"}}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 401,
		},
		{
			name: "quota exceeded",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				w.Write([]byte(`{"error":{"type":"usage-limit-exceeded"}}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 402,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.handler)
			run, err := c.StartActorRun(context.Background(), "vendor~scraper", map[string]any{"startUrls": []string{"https://acme.com"}})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantAPIErr {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRunID, run.ID)
			assert.Equal(t, "ds-123", run.DefaultDatasetID)
		})
	}
}

func TestGetRun(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/actor-runs/run-123", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": Run{ID: "run-123", Status: StatusSucceeded, DefaultDatasetID: "ds-123"},
		})
	})

	run, err := c.GetRun(context.Background(), "run-123")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, run.Status)
	assert.Equal(t, "ds-123", run.DefaultDatasetID)
}

func TestListDatasetItems(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/datasets/ds-123/items", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("clean"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"url": "https://acme.com", "emails": []string{"info@acme.com"}},
			{"url": "https://other.com"},
		})
	})

	items, err := c.ListDatasetItems(context.Background(), "ds-123")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://acme.com", items[0]["url"])
}

func TestListDatasetItems_Empty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})

	items, err := c.ListDatasetItems(context.Background(), "ds-empty")
	require.NoError(t, err)
	assert.Empty(t, items)
}
