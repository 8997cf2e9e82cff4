package middleware

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// cacheWriter tees the response body so a successful JSON reply can
// be stored after the handler ran.
type cacheWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *cacheWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CatalogCache caches successful GET responses in Redis for ttl.  It
// is applied to the read-mostly catalog routes only; lifecycle routes
// must always reflect committed state and are never cached.  A nil
// client disables the cache.
func CatalogCache(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	if rdb == nil || ttl <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
			key := fmt.Sprintf("catalog:%x", sum)

			ctx := c.Request().Context()
			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &cacheWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK {
				// Best-effort: a failed SET only costs the next request a miss.
				_ = rdb.Set(ctx, key, cw.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}
