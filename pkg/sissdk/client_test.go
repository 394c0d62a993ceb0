package sissdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 400,
		"data":    data,
		"message": message,
	})
}

func loginData(access, refresh string) map[string]any {
	return map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"user": map[string]any{
			"id":    "user-1",
			"email": "admin@springfield.edu",
			"role":  "admin",
		},
		"tenant": map[string]any{
			"id":   "tenant-1",
			"slug": "springfield",
			"name": "Springfield Elementary",
		},
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:    baseURL,
		TenantSlug: "springfield",
		Email:      "admin@springfield.edu",
		Password:   "secure-password",
	})
	require.NoError(t, err)
	return client
}

func TestLoginPopulatesSession(t *testing.T) {
	t.Parallel()

	var gotTenantHeader, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		gotTenantHeader = r.Header.Get("X-Tenant-Slug")
		gotContentType = r.Header.Get("Content-Type")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "admin@springfield.edu", body["email"])
		require.Equal(t, "secure-password", body["password"])
		require.Equal(t, "springfield", body["tenantSlug"])

		writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "Login successful")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	data, err := client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	require.Equal(t, "t1", data.AccessToken)
	require.Equal(t, "t1", client.AccessToken())
	require.Equal(t, "r1", client.RefreshToken())
	require.True(t, client.IsAuthenticated())
	require.Equal(t, "springfield", gotTenantHeader)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "user-1", client.CurrentUser().ID)
	require.Equal(t, "springfield", client.CurrentTenant().Slug)
}

func TestLoginRejectedCredentials(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, "invalid credentials")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Login(context.Background(), "", "wrong", "")
	require.Error(t, err)
	require.True(t, IsAuthentication(err))
	require.False(t, client.IsAuthenticated())
	require.Empty(t, client.AccessToken())
}

func TestRequestRecoversWithRefresh(t *testing.T) {
	t.Parallel()

	var studentHits, refreshHits atomic.Int32
	var replayToken atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "r1", body["refreshToken"])
		writeEnvelope(w, http.StatusOK, loginData("t2", "r2"), "")
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		studentHits.Add(1)
		auth := r.Header.Get("Authorization")
		if auth == "Bearer t1" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
			return
		}
		replayToken.Store(auth)
		writeEnvelope(w, http.StatusOK, []any{}, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/students", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	// Exactly one refresh, one replay, and the replay carried the new token.
	require.Equal(t, int32(1), refreshHits.Load())
	require.Equal(t, int32(2), studentHits.Load())
	require.Equal(t, "Bearer t2", replayToken.Load())
	require.Equal(t, "t2", client.AccessToken())
	require.Equal(t, "r2", client.RefreshToken())
}

func TestRefreshFailureFallsBackToLogin(t *testing.T) {
	t.Parallel()

	var loginHits, refreshHits, studentHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		n := loginHits.Add(1)
		if n == 1 {
			writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "")
			return
		}
		writeEnvelope(w, http.StatusOK, loginData("t2", "r2"), "")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		writeEnvelope(w, http.StatusUnauthorized, nil, "refresh token revoked")
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		studentHits.Add(1)
		if r.Header.Get("Authorization") == "Bearer t2" {
			writeEnvelope(w, http.StatusOK, []any{}, "")
			return
		}
		writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/students", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	require.Equal(t, int32(1), refreshHits.Load())
	require.Equal(t, int32(2), loginHits.Load()) // initial login + one re-login
	require.Equal(t, int32(2), studentHits.Load())
	require.Equal(t, "t2", client.AccessToken())
	require.True(t, client.IsAuthenticated())
}

func TestRecoveryExhaustedSurfacesOriginal401(t *testing.T) {
	t.Parallel()

	var loginHits, refreshHits, studentHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if loginHits.Add(1) == 1 {
			writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "")
			return
		}
		writeEnvelope(w, http.StatusUnauthorized, nil, "account locked")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		writeEnvelope(w, http.StatusUnauthorized, nil, "refresh token revoked")
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		studentHits.Add(1)
		writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/students", nil)
	require.Error(t, err)
	require.True(t, IsAuthentication(err))

	// No more than two recovery attempts total, and no replay after both
	// paths failed.
	require.Equal(t, int32(1), refreshHits.Load())
	require.Equal(t, int32(2), loginHits.Load())
	require.Equal(t, int32(1), studentHits.Load())
	require.False(t, client.IsAuthenticated())
}

func TestNotFoundDoesNotTriggerRecovery(t *testing.T) {
	t.Parallel()

	var refreshHits, studentHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		writeEnvelope(w, http.StatusOK, loginData("t2", "r2"), "")
	})
	mux.HandleFunc("/students/", func(w http.ResponseWriter, r *http.Request) {
		studentHits.Add(1)
		writeEnvelope(w, http.StatusNotFound, nil, "student not found")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	_, err = client.Students().Get(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.Equal(t, int32(0), refreshHits.Load())
	require.Equal(t, int32(1), studentHits.Load())
}

func TestLogoutAlwaysClearsSession(t *testing.T) {
	t.Parallel()

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		var logoutHits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "")
		})
		mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			logoutHits.Add(1)
			writeEnvelope(w, http.StatusInternalServerError, nil, "boom")
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		_, err := client.Login(context.Background(), "", "", "")
		require.NoError(t, err)

		client.Logout(context.Background())
		require.Equal(t, int32(1), logoutHits.Load())
		require.False(t, client.IsAuthenticated())
		require.Empty(t, client.AccessToken())
		require.Empty(t, client.RefreshToken())
		require.Nil(t, client.CurrentUser())
	})

	t.Run("no session", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		client := newTestClient(t, srv.URL)
		client.Logout(context.Background())
		require.Equal(t, int32(0), hits.Load())
		require.False(t, client.IsAuthenticated())
	})
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	t.Parallel()

	const parallel = 8

	var refreshHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, loginData("t1", "r1"), "")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		// Widen the window so every waiter piles onto the in-flight refresh.
		time.Sleep(50 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, loginData("t2", "r2"), "")
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer t1" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
			return
		}
		writeEnvelope(w, http.StatusOK, []any{}, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, parallel)
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Get(context.Background(), "/students", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "request %d", i)
	}
	require.Equal(t, int32(1), refreshHits.Load())
	require.Equal(t, "t2", client.AccessToken())
}

func TestRefreshAheadUsesTokenExpiry(t *testing.T) {
	t.Parallel()

	// A JWT already inside the refresh-ahead window forces a proactive
	// refresh, so the protected endpoint never sees the stale token.
	expiring, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(10 * time.Second).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	var refreshHits atomic.Int32
	var tokensSeen sync.Map

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, loginData(expiring, "r1"), "")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		writeEnvelope(w, http.StatusOK, loginData("t2", "r2"), "")
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		tokensSeen.Store(r.Header.Get("Authorization"), true)
		writeEnvelope(w, http.StatusOK, []any{}, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err = client.Login(context.Background(), "", "", "")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/students", nil)
	require.NoError(t, err)

	require.Equal(t, int32(1), refreshHits.Load())
	_, sawStale := tokensSeen.Load("Bearer " + expiring)
	require.False(t, sawStale, "stale token should have been refreshed before the request")
	_, sawFresh := tokensSeen.Load("Bearer t2")
	require.True(t, sawFresh)
}

// flakyTransport fails the first n round trips with a transport error.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"success":true,"data":{}}`)),
	}, nil
}

func (f *flakyTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTransportRetryPolicy(t *testing.T) {
	t.Parallel()

	newFlakyClient := func(t *testing.T, transport *flakyTransport) *Client {
		t.Helper()
		client, err := New(Config{
			BaseURL:    "http://sis.internal/api",
			HTTPClient: &http.Client{Transport: transport},
			Retry: RetryPolicy{
				MaxAttempts: 3,
				Backoff:     time.Millisecond,
			},
		})
		require.NoError(t, err)
		return client
	}

	t.Run("idempotent methods retry", func(t *testing.T) {
		t.Parallel()

		transport := &flakyTransport{failures: 2}
		client := newFlakyClient(t, transport)

		_, err := client.Get(context.Background(), "/students", nil)
		require.NoError(t, err)
		require.Equal(t, 3, transport.callCount())
	})

	t.Run("non-idempotent methods fail fast", func(t *testing.T) {
		t.Parallel()

		transport := &flakyTransport{failures: 1}
		client := newFlakyClient(t, transport)

		_, err := client.Post(context.Background(), "/students", map[string]string{"firstName": "Lisa"})
		require.Error(t, err)
		require.True(t, IsNetwork(err))
		require.Equal(t, 1, transport.callCount())
	})

	t.Run("caller opt-in retries a write", func(t *testing.T) {
		t.Parallel()

		transport := &flakyTransport{failures: 1}
		client := newFlakyClient(t, transport)

		_, err := client.DoOpts(context.Background(), http.MethodPost, "/students",
			map[string]string{"firstName": "Lisa"}, Options{AllowRetry: true})
		require.NoError(t, err)
		require.Equal(t, 2, transport.callCount())
	})

	t.Run("retry budget exhausted", func(t *testing.T) {
		t.Parallel()

		transport := &flakyTransport{failures: 10}
		client := newFlakyClient(t, transport)

		_, err := client.Get(context.Background(), "/students", nil)
		require.Error(t, err)
		require.True(t, IsNetwork(err))
		require.Equal(t, 3, transport.callCount())
	})
}

func TestValidationErrorCarriesFieldDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{
			"success": false,
			"message": "validation failed",
			"error": {
				"code": "VALIDATION_ERROR",
				"message": "validation failed",
				"details": {
					"dateOfBirth": "must be a valid ISO date",
					"gradeLevel": "is required"
				}
			}
		}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Students().Create(context.Background(), Student{FirstName: "Bart"})
	require.Error(t, err)
	require.True(t, IsValidation(err))

	e, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnprocessableEntity, e.Status)
	require.Equal(t, "VALIDATION_ERROR", e.Code)
	require.Equal(t, "is required", e.Fields["gradeLevel"])
}

func TestRefreshWithoutToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://sis.internal/api")
	err := client.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, IsRefresh(err))
}
