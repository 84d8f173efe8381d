package idempotency

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	failing bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*Record)}
}

func (s *memoryStore) Reserve(_ context.Context, key, requestHash string, _ time.Duration) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, false, errors.New("store down")
	}
	if existing, ok := s.records[key]; ok {
		return existing, false, nil
	}
	s.records[key] = &Record{RequestHash: requestHash, Pending: true}
	return nil, true, nil
}

func (s *memoryStore) Complete(_ context.Context, key string, record *Record, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
	return nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func newRouter(store Store, status int) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	calls := 0
	router := gin.New()
	router.POST("/refunds", Middleware(store, time.Hour, zap.NewNop()), func(c *gin.Context) {
		calls++
		c.JSON(status, gin.H{"call": calls})
	})
	return router, &calls
}

func post(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/refunds", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	router, calls := newRouter(newMemoryStore(), http.StatusAccepted)

	first := post(router, "key-1", `{"source_address":"a"}`)
	second := post(router, "key-1", `{"source_address":"a"}`)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
}

func TestMiddleware_DifferentPayload(t *testing.T) {
	router, calls := newRouter(newMemoryStore(), http.StatusAccepted)

	post(router, "key-1", `{"source_address":"a"}`)
	w := post(router, "key-1", `{"source_address":"b"}`)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_MISMATCH")
}

func TestMiddleware_PendingRequest(t *testing.T) {
	store := newMemoryStore()
	router, calls := newRouter(store, http.StatusAccepted)
	body := `{"source_address":"a"}`
	store.records["/refunds:key-1"] = &Record{RequestHash: HashRequest(http.MethodPost, "/refunds", []byte(body)), Pending: true}

	w := post(router, "key-1", body)

	assert.Equal(t, 0, *calls)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMiddleware_ServerErrorReleasesKey(t *testing.T) {
	store := newMemoryStore()
	router, calls := newRouter(store, http.StatusBadGateway)

	post(router, "key-1", `{}`)
	post(router, "key-1", `{}`)

	assert.Equal(t, 2, *calls)
	assert.Empty(t, store.records)
}

func TestMiddleware_NoKeyOrStoreFailurePassesThrough(t *testing.T) {
	store := newMemoryStore()
	router, calls := newRouter(store, http.StatusOK)

	post(router, "", `{}`)
	post(router, "", `{}`)
	assert.Equal(t, 2, *calls)

	store.failing = true
	post(router, "key-2", `{}`)
	assert.Equal(t, 3, *calls)
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("3f2c9a8e-refund"))
	assert.Error(t, ValidateKey("has space"))
	assert.Error(t, ValidateKey(strings.Repeat("k", MaxKeyLength+1)))
}
