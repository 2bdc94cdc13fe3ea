package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"order-crm-sync/internal/fault"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		kind fault.Kind
		want int
	}{
		{fault.KindPreconditionFailed, http.StatusConflict},
		{fault.KindNotFound, http.StatusNotFound},
		{fault.KindExpired, http.StatusGone},
		{fault.KindLimitExceeded, http.StatusTooManyRequests},
		{fault.KindUpstream, http.StatusBadGateway},
		{fault.KindInvalidResponse, http.StatusBadGateway},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(w, fault.New(tc.kind, "boom"))
		if w.Code != tc.want {
			t.Errorf("kind %v: status = %d, want %d", tc.kind, w.Code, tc.want)
		}
	}
}

func TestWriteErrorHidesUnclassifiedDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("pq: secret connection string"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal error" {
		t.Fatalf("error = %q, internal detail must not leak", body.Error)
	}
}

func TestWriteErrorBodyCarriesKindAndMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fault.New(fault.KindPreconditionFailed, "company info required before contact creation"))

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Kind != "precondition_failed" {
		t.Fatalf("kind = %q", body.Kind)
	}
	if body.Error != "company info required before contact creation" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"module":"x","bogus":1}`))
	var v struct {
		Module string `json:"module"`
	}
	if err := Decode(req, &v); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestDecodeValidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"module":"analytics"}`))
	var v struct {
		Module string `json:"module"`
	}
	if err := Decode(req, &v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Module != "analytics" {
		t.Fatalf("module = %q", v.Module)
	}
}
