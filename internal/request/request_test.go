package request

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"x-forwarded-for first", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"x-real-ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"remote addr", nil, "10.0.0.1:12345", "10.0.0.1:12345"},
		{"xff over xri", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"}, "", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			got := ClientIP(r)
			if got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestSessionIDFromContext(t *testing.T) {
	t.Parallel()
	ctx := WithSessionID(context.Background(), "s-123")
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	if got := SessionIDFromContext(r); got != "s-123" {
		t.Errorf("SessionIDFromContext() = %q, want s-123", got)
	}
}

func TestSessionIDFromContext_Missing(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	if got := SessionIDFromContext(r); got != "" {
		t.Errorf("SessionIDFromContext() = %q, want empty", got)
	}
}

func TestSessionIDFromContext_WrongType(t *testing.T) {
	t.Parallel()
	ctx := context.WithValue(context.Background(), SessionContextKey(), 42)
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	if got := SessionIDFromContext(r); got != "" {
		t.Errorf("SessionIDFromContext() = %q, want empty when wrong type", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}`))
		var p payload
		if err := DecodeJSON(r, &p); err != nil {
			t.Fatalf("DecodeJSON() error: %v", err)
		}
		if p.Name != "x" {
			t.Errorf("name = %q, want x", p.Name)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
		var p payload
		if err := DecodeJSON(r, &p); err == nil {
			t.Error("expected an error for malformed JSON")
		}
	})

	t.Run("trailing garbage", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}{"name":"y"}`))
		var p payload
		if err := DecodeJSON(r, &p); err == nil {
			t.Error("expected an error for trailing data")
		}
	})
}
