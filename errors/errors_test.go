package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeConnectionFailed, true},
		{ErrCodeTimeout, true},
		{ErrCodeServiceUnavailable, true},
		{ErrCodeDatabaseError, true},
		{ErrCodeNotFound, false},
		{ErrCodeRouteConflict, false},
		{ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg", http.StatusInternalServerError)
			if err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v for %s", tt.retryable, tt.code)
			}
		})
	}
}

func TestConnectFailed_WrapsCause(t *testing.T) {
	cause := stderrors.New("dial tcp 127.0.0.1:6379: connection refused")
	err := ConnectFailed("redis", cause)

	if err.Code != ErrCodeConnectionFailed {
		t.Errorf("expected CONNECTION_FAILED, got %s", err.Code)
	}
	if err.Details["service"] != "redis" {
		t.Errorf("expected service=redis, got %v", err.Details["service"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestRouteErrors(t *testing.T) {
	conflict := RouteConflict("get", "/healthcheck", "healthcheck", "status")
	if conflict.Code != ErrCodeRouteConflict {
		t.Errorf("expected ROUTE_CONFLICT, got %s", conflict.Code)
	}
	if !strings.Contains(conflict.Message, "GET /healthcheck") {
		t.Errorf("expected method and route in message, got %q", conflict.Message)
	}
	if conflict.Details["bound"] != "healthcheck" || conflict.Details["conflicting"] != "status" {
		t.Errorf("unexpected details %v", conflict.Details)
	}

	unreachable := UnreachableRoute("/apps", "apps")
	if unreachable.Code != ErrCodeUnreachableRoute {
		t.Errorf("expected UNREACHABLE_ROUTE, got %s", unreachable.Code)
	}

	for _, code := range []ErrorCode{ErrCodeRouteConflict, ErrCodeUnreachableRoute, ErrCodeInvalidRoute} {
		if !IsBindCode(code) {
			t.Errorf("expected %s to be a bind code", code)
		}
	}
	if IsBindCode(ErrCodeConnectionFailed) {
		t.Error("CONNECTION_FAILED is not a bind code")
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("template", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
	if NotFound("template", "42").Details["id"] != "42" {
		t.Error("expected id in details")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := Validation("bad")
	err.WithDetail("field", "name")
	if err.Details["field"] != "name" {
		t.Errorf("expected field=name, got %v", err.Details["field"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeNotFound, "missing", http.StatusNotFound)
	if err.Error() != "NOT_FOUND: missing" {
		t.Errorf("unexpected format %q", err.Error())
	}
	err.WithCause(stderrors.New("no rows"))
	if err.Error() != "NOT_FOUND: missing (cause: no rows)" {
		t.Errorf("unexpected format %q", err.Error())
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"ServiceUnavailable", ServiceUnavailable("cache"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"Timeout", Timeout("connect"), ErrCodeTimeout, http.StatusGatewayTimeout},
		{"AlreadyExists", AlreadyExists("template"), ErrCodeAlreadyExists, http.StatusConflict},
		{"Validation", Validation("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"MissingField", MissingField("name"), ErrCodeMissingField, http.StatusBadRequest},
		{"InvalidConfig", InvalidConfig("app.port", "out of range"), ErrCodeInvalidConfig, http.StatusInternalServerError},
		{"InvalidRoute", InvalidRoute("h", "empty"), ErrCodeInvalidRoute, http.StatusInternalServerError},
		{"Internal", Internal(nil), ErrCodeInternal, http.StatusInternalServerError},
		{"DatabaseError", DatabaseError(nil), ErrCodeDatabaseError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
		})
	}
}

func TestAppError_ToResponse(t *testing.T) {
	err := NotFound("template", "7")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeNotFound || resp.Error.Message != err.Message {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Error.Details["id"] != "7" {
		t.Errorf("expected details to be carried, got %v", resp.Error.Details)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("expected nil for nil error")
	}

	appErr := NotFound("template", "")
	if Wrap(appErr) != appErr {
		t.Error("expected AppError passthrough")
	}

	wrapped := fmt.Errorf("loading: %w", appErr)
	if Wrap(wrapped) != appErr {
		t.Error("expected wrapped AppError to be unwrapped")
	}

	plain := stderrors.New("boom")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal || !stderrors.Is(got, plain) {
		t.Errorf("expected internal error wrapping cause, got %v", got)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("bind: %w", UnreachableRoute("/x", "x"))
	if !IsCode(err, ErrCodeUnreachableRoute) {
		t.Error("expected IsCode to match through wrapping")
	}
	if IsCode(err, ErrCodeRouteConflict) {
		t.Error("expected IsCode to reject other codes")
	}
	if IsCode(stderrors.New("plain"), ErrCodeInternal) {
		t.Error("expected IsCode to reject non-AppErrors")
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("plain error must not convert")
	}
	if !IsAppError(fmt.Errorf("x: %w", Timeout("op"))) {
		t.Error("expected wrapped AppError to be detected")
	}
}
