package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware(t *testing.T) {
	m := NewMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))

	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"generated", "", false},
		{"kept", "abc-123", true},
		{"too long", strings.Repeat("x", 65), false},
		{"control chars", "bad\nid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(HeaderRequestID, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
				t.Fatalf("context id %q, header %q", seen, rec.Header().Get(HeaderRequestID))
			}
			if tt.keep != (seen == tt.inbound) {
				t.Errorf("id = %q, inbound %q, keep %v", seen, tt.inbound, tt.keep)
			}
			if !tt.keep && !strings.HasPrefix(seen, "req_") {
				t.Errorf("generated id %q lacks prefix", seen)
			}
		})
	}
	if m.TotalRequests() != int64(len(tests)) {
		t.Errorf("TotalRequests = %d", m.TotalRequests())
	}
}
