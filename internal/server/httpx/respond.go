// Package httpx holds shared JSON request/response helpers for HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"order-crm-sync/internal/fault"
)

// errorBody is the JSON error envelope returned to API callers.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

// WriteError maps a fault error to its HTTP status and writes the error body.
// Unclassified errors are reported as a generic 500 without leaking detail.
func WriteError(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	status := statusFor(kind)
	msg := fault.MessageOf(err)
	if kind == fault.KindUnknown {
		log.Printf("http: unclassified error: %v", err)
		msg = "internal error"
	}
	WriteJSON(w, status, errorBody{Error: msg, Kind: kind.String()})
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindPreconditionFailed:
		return http.StatusConflict
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindExpired:
		return http.StatusGone
	case fault.KindLimitExceeded:
		return http.StatusTooManyRequests
	case fault.KindUpstream, fault.KindInvalidResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads the request body as JSON into v. Returns a caller-safe error
// message suitable for a 400 response.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: "bad_request"})
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid authorization", Kind: "unauthorized"})
}
