package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestMiddleware_RequestID(t *testing.T) {
	known := uuid.NewString()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "no header", incoming: "", keep: false},
		{name: "valid uuid is reused", incoming: known, keep: true},
		{name: "garbage is replaced", incoming: "req_<script>", keep: false},
	}

	m := NewMiddleware()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = FromRequest(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("request id %q is not a uuid", seen)
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("request id = %q, want %q", seen, tt.incoming)
			}
			if !tt.keep && seen == tt.incoming {
				t.Errorf("request id %q should have been replaced", seen)
			}
			if got := rec.Header().Get(HeaderRequestID); got != seen {
				t.Errorf("response header = %q, want %q", got, seen)
			}
		})
	}

	if got := m.GetMetrics().TotalRequests; got != int64(len(tests)) {
		t.Errorf("TotalRequests = %d, want %d", got, len(tests))
	}
}
