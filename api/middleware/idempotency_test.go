package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newSettleRequest(t, "key-1", `{"status":"done"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)

	// Same key, same body: the handler must not run again.
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newSettleRequest(t, "key-1", `{"status":"done"}`))
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.Equal(t, 1, calls)

	// Same key, different body: reuse is rejected.
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, newSettleRequest(t, "key-1", `{"status":"canceled"}`))
	require.Equal(t, http.StatusConflict, third.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyRequiresKey(t *testing.T) {
	t.Parallel()

	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a key")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interventions/abc/status", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencySkipsServerFailures(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":"DEPENDENCY_FAILURE"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newSettleRequest(t, "key-2", `{"status":"done"}`))
	require.Equal(t, http.StatusServiceUnavailable, first.Code)
	require.Empty(t, store.values, "a transient failure must not be recorded")

	// The retry reaches the handler and its success is what gets replayed.
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newSettleRequest(t, "key-2", `{"status":"done"}`))
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, 2, calls)

	third := httptest.NewRecorder()
	handler.ServeHTTP(third, newSettleRequest(t, "key-2", `{"status":"done"}`))
	require.Equal(t, http.StatusOK, third.Code)
	require.Equal(t, 2, calls)
}

func TestIdempotencyIgnoresUnmatchedRoutes(t *testing.T) {
	t.Parallel()

	calls := 0
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, calls)
}

func newSettleRequest(t *testing.T, key, body string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interventions/abc/status", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", key)
	return req
}

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
