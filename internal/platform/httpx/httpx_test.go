package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Title    string `json:"title" validate:"required,max=10"`
	Capacity int    `json:"max_capacity" validate:"gte=0"`
	Internal string `json:"-"`
}

func TestValidator_FieldNamesFromJSONTags(t *testing.T) {
	err := NewValidator().Validate(&sampleRequest{Capacity: -1})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
	if verr.Fields[0].Field != "title" || verr.Fields[0].Rule != "required" {
		t.Errorf("unexpected first error %+v", verr.Fields[0])
	}
	if verr.Fields[1].Field != "max_capacity" || verr.Fields[1].Rule != "gte" || verr.Fields[1].Param != "0" {
		t.Errorf("unexpected second error %+v", verr.Fields[1])
	}
	if !strings.Contains(verr.Error(), "max_capacity failed gte=0") {
		t.Errorf("unexpected message %q", verr.Error())
	}
}

func TestValidator_Valid(t *testing.T) {
	if err := NewValidator().Validate(&sampleRequest{Title: "MMR", Capacity: 10}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func newContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBind(t *testing.T) {
	c, _ := newContext(`{"title":"BCG","max_capacity":3}`)
	var req sampleRequest
	if err := Bind(c, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Title != "BCG" || req.Capacity != 3 {
		t.Errorf("unexpected bound value %+v", req)
	}

	c, _ = newContext(`{"title":`)
	err := Bind(c, &req)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %v", err)
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{echo.NewHTTPError(http.StatusForbidden, "required role: admin"), http.StatusForbidden, "forbidden"},
		{echo.ErrNotFound, http.StatusNotFound, "not_found"},
		{&ValidationError{Fields: []FieldError{{Field: "title", Rule: "required"}}}, http.StatusBadRequest, "invalid_input"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		c, rec := newContext("")
		ErrorHandler(tt.err, c)
		if rec.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Code != tt.code {
			t.Errorf("%v: expected code %s, got %s", tt.err, tt.code, body.Code)
		}
	}
}
