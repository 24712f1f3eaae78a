package middleware

// replay.go stores whole responses in Redis and plays them back.  Two
// middlewares share it: the public GET cache and Idempotency-Key replay for
// mutating booking and checkout calls.

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-booking/internal/config"
)

// captureWriter tees the response body into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if room := cw.limit - cw.size; cw.limit <= 0 || room > 0 {
		if cw.limit > 0 && int64(len(b)) > room {
			cw.buf.Write(b[:room])
		} else {
			cw.buf.Write(b)
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// truncated reports whether the body outgrew the capture limit.
func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

func capture(c echo.Context, limit int) *captureWriter {
	cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(limit)}
	c.Response().Writer = cw
	return cw
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

func snapshotHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Cache") || strings.EqualFold(k, echo.HeaderXRequestID) {
			continue
		}
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// replay writes a stored payload to the client.
func replay(c echo.Context, bs []byte, extra map[string]string) bool {
	status, hdr, body, ok := decodePayload(bs)
	if !ok {
		return false
	}
	h := c.Response().Header()
	for k, vals := range hdr {
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	for k, v := range extra {
		h.Set(k, v)
	}
	c.Response().WriteHeader(status)
	if len(body) > 0 {
		_, _ = c.Response().Write(body)
	}
	return true
}

func store(rdb *redis.Client, key string, cw *captureWriter, header http.Header, ttl time.Duration) {
	payload, err := encodePayload(cw.status, snapshotHeader(header), cw.buf.Bytes())
	if err != nil {
		return
	}
	_ = rdb.Set(context.Background(), key, payload, ttl).Err()
}

func hashKey(prefix string, parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// cacheKey builds the public cache key according to cfg.KeyStrategy.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		return hashKey(cfg.Prefix, "route", c.Path())
	case "method_route_query":
		return hashKey(cfg.Prefix, "method", r.Method, "route", c.Path(), "q", r.URL.RawQuery)
	default: // route_query
		return hashKey(cfg.Prefix, "route", c.Path(), "q", r.URL.RawQuery)
	}
}

// NewRedisCache serves repeated public GETs from Redis and marks responses
// with X-Cache: HIT or MISS.  Only complete 200 responses are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKey(cfg, c)
			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if replay(c, bs, map[string]string{"X-Cache": "HIT"}) {
					return nil
				}
			}

			cw := capture(c, cfg.MaxBodyBytes)
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && !cw.truncated() {
				store(rdb, key, cw, c.Response().Header(), ttl)
			}
			return nil
		}
	}
}

// Idempotency-Key handling.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplay         = "Idempotent-Replay"
	maxIdempotencyKeyLen = 255
)

// NewIdempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the caller and route.  While the first request is still
// running, duplicates get 409 request_in_progress.  Responses other than 5xx
// are stored; a 5xx releases the key so the client can retry.
func NewIdempotency(cfg config.IdempotencyConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idem := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
			if idem == "" {
				return next(c)
			}
			if len(idem) > maxIdempotencyKeyLen {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotency key too long", "code": "invalid_request"})
			}
			ctx := c.Request().Context()
			key := hashKey(cfg.Prefix, subject(c), c.Request().Method, c.Path(), idem)
			lock := key + ":lock"

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if replay(c, bs, map[string]string{HeaderReplay: "true"}) {
					return nil
				}
			}
			acquired, err := rdb.SetNX(ctx, lock, "1", cfg.LockTTL).Result()
			if err != nil {
				return next(c)
			}
			if !acquired {
				return c.JSON(http.StatusConflict, echo.Map{"error": "a request with this idempotency key is in progress", "code": "request_in_progress"})
			}
			defer rdb.Del(context.Background(), lock)

			cw := capture(c, cfg.MaxBodyBytes)
			if err := next(c); err != nil {
				return err
			}
			if cw.status < http.StatusInternalServerError && cw.status != http.StatusTooManyRequests && !cw.truncated() {
				store(rdb, key, cw, c.Response().Header(), cfg.TTL)
			}
			return nil
		}
	}
}
