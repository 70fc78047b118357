package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Envelope is the uniform JSON body of every response: a machine-readable
// code, a human-readable message, and the payload. Internal error detail
// never leaves the process through it.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// WriteSuccess writes a 200 envelope with data.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, Envelope{Code: http.StatusOK, Msg: "ok", Data: data})
}

// WriteError writes an error envelope. code defaults to status when zero.
func WriteError(w http.ResponseWriter, status, code int, msg string) {
	if code == 0 {
		code = status
	}
	writeEnvelope(w, status, Envelope{Code: code, Msg: msg})
}

// WriteRateLimited writes a 429 envelope with a Retry-After hint rounded up
// to whole seconds.
func WriteRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter / time.Second)
	if retryAfter%time.Second != 0 || secs == 0 {
		secs++
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	WriteError(w, http.StatusTooManyRequests, 0, "too many requests")
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// DecodeJSON parses the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
