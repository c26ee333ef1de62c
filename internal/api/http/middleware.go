package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Isaacolagoke/Testai/internal/apierr"
)

// Recover turns a panic into a 500 envelope.
func Recover(rs *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					rs.Log.Error("panic recovered", "path", r.URL.Path, "panic", fmt.Sprint(v), "stack", string(debug.Stack()))
					rs.JSON(w, http.StatusInternalServerError, apierr.Envelope{Errors: []apierr.Msg{{Msg: "Server error"}}})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs every request once, at a level chosen by status class.
func RequestLogger(rs *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}
			switch {
			case status >= 500:
				rs.Log.Error("http request", kv...)
			case status >= 400:
				rs.Log.Warn("http request", kv...)
			default:
				rs.Log.Info("http request", kv...)
			}
		})
	}
}
