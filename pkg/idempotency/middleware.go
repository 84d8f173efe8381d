package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

const (
	// HeaderIdempotencyKey is the HTTP header for idempotency key
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderReplayed is set on responses served from a stored record
	HeaderReplayed = "Idempotent-Replayed"

	// MaxBodySize is the maximum request body size hashed for idempotency (1MB)
	MaxBodySize = 1 << 20

	MaxKeyLength = 255

	DefaultTTL = 24 * time.Hour
)
	MaxBodySize = 1 << 20
	MaxKeyLength = 255

	DefaultTTL = 24 * time.Hour
)

// responseWriter wraps gin.ResponseWriter to capture response
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ValidateKey checks the idempotency key is printable and not too long
func ValidateKey(key string) error {
	if len(key) > MaxKeyLength {
		return errors.New("idempotency key is too long")
	}
	for _, r := range key {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return errors.New("idempotency key contains invalid characters")
		}
	}
	return nil
}

// HashRequest fingerprints a request so a reused key with a different payload is detected
func HashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{"request_id": c.GetString("request_id")},
	})
}

// Middleware replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through. Store failures fail open.
func Middleware(store Store, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(HeaderIdempotencyKey)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		if err := ValidateKey(idempotencyKey); err != nil {
			abort(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())
			return
		}

		bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodySize))
		if err != nil {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		path := c.Request.URL.Path
		storeKey := path + ":" + idempotencyKey
		requestHash := HashRequest(c.Request.Method, path, bodyBytes)

		existing, reserved, err := store.Reserve(c.Request.Context(), storeKey, requestHash, ttl)
		if err != nil {
			logger.Error("Failed to check idempotency key",
				zap.String("idempotency_key", idempotencyKey),
				zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			switch {
			case existing.RequestHash != requestHash:
				logger.Warn("Idempotency key reused with a different payload",
					zap.String("idempotency_key", idempotencyKey))
				abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_MISMATCH", "Idempotency key was used for a different request")
			case existing.Pending:
				abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed")
			default:
				logger.Info("Returning cached response",
					zap.String("idempotency_key", idempotencyKey),
					zap.Int("status", existing.Status))
				c.Header(HeaderReplayed, "true")
				c.Data(existing.Status, "application/json; charset=utf-8", existing.Body)
				c.Abort()
			}
			return
		}

		writer := &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = writer

		c.Next()

		// server errors may be transient; let the client retry with the same key
		if writer.Status() >= http.StatusInternalServerError {
			if err := store.Release(c.Request.Context(), storeKey); err != nil {
				logger.Error("Failed to release idempotency key",
					zap.String("idempotency_key", idempotencyKey),
					zap.Error(err))
			}
			return
		}

		record := &Record{
			RequestHash: requestHash,
			Status:      writer.Status(),
			Body:        writer.body.Bytes(),
			StoredAt:    time.Now().UTC(),
		}
		if err := store.Complete(c.Request.Context(), storeKey, record, ttl); err != nil {
			logger.Error("Failed to store idempotency key",
				zap.String("idempotency_key", idempotencyKey),
				zap.Error(err))
		}
	}
}
