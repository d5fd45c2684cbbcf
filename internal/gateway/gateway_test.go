package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"societyAdminAPI/internal/apperr"
)

func TestCall_SendsEnvelopeAndDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createSociety", r.URL.Path)
		assert.Equal(t, "Bearer operator-token", r.Header.Get("Authorization"))

		var body struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Green Park", body.Data["name"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": {"societyId": "soc-1"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	ctx := WithToken(context.Background(), "operator-token")

	var out struct {
		SocietyID string `json:"societyId"`
	}
	require.NoError(t, c.Call(ctx, FnCreateSociety, map[string]any{"name": "Green Park"}, &out))
	assert.Equal(t, "soc-1", out.SocietyID)
}

func TestCall_FallsBackToServiceToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer svc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"result": null}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ServiceToken: "svc"}, nil)
	require.NoError(t, c.Call(context.Background(), FnRegenerateSocietyQR, map[string]string{"societyId": "s"}, nil))
}

func TestCall_MapsErrorStatuses(t *testing.T) {
	cases := []struct {
		status string
		code   int
		want   error
	}{
		{"INVALID_ARGUMENT", http.StatusBadRequest, apperr.ErrValidation},
		{"NOT_FOUND", http.StatusNotFound, apperr.ErrNotFound},
		{"FAILED_PRECONDITION", http.StatusBadRequest, apperr.ErrInvalidState},
		{"INTERNAL", http.StatusInternalServerError, apperr.ErrExternalCall},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"status": tc.status, "message": "nope"},
				})
			}))
			defer srv.Close()

			err := New(Config{BaseURL: srv.URL}, nil).Call(context.Background(), FnHardDeleteSociety, nil, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCall_NonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(Config{BaseURL: srv.URL}, nil).Call(context.Background(), FnHardDeleteSociety, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrExternalCall)
}

func TestCall_TimeoutIsDistinctKind(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	err := c.Call(context.Background(), FnBroadcastAnnouncement, nil, nil)

	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.NotErrorIs(t, err, apperr.ErrExternalCall)
}

func TestDisabled(t *testing.T) {
	err := Disabled{}.Call(context.Background(), FnCreateSociety, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrExternalCall)
}
