package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/logger"
)

// Responder writes JSON bodies and the {"errors":[{"msg":...}]} envelope.
// Verbose exposes upstream causes and is only set in development.
type Responder struct {
	Log     *logger.Logger
	Verbose bool
}

func (rs *Responder) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.Log.Warn("response encode failed", "error", err.Error())
	}
}

func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, env := apierr.EnvelopeFor(err, rs.Verbose)
	if status >= http.StatusInternalServerError {
		rs.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	rs.JSON(w, status, env)
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return apierr.BadRequest("Request body is required")
	}
	if err != nil {
		return apierr.BadRequest("Invalid JSON body")
	}
	return nil
}

type message struct {
	Msg string `json:"msg"`
}
