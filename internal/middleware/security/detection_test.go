package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetector_ClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct peer", "203.0.113.9:4000", nil, "203.0.113.9"},
		{"untrusted peer ignores forwarding", "203.0.113.9:4000", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.9"},
		{"trusted proxy forwards", "10.0.0.2:4000", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "1.2.3.4"},
		{"trusted proxy real ip", "127.0.0.1:4000", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"garbage forwarded value", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "nope"}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector()
	var reached int
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached++ }))

	tests := []struct {
		method, target string
		wantCode       int
	}{
		{http.MethodGet, "/pages/rural", http.StatusOK},
		{http.MethodGet, "/.env", http.StatusOK},
		{"TRACE", "/pages/rural", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))
		if rr.Code != tt.wantCode {
			t.Errorf("%s %s: status=%d, want %d", tt.method, tt.target, rr.Code, tt.wantCode)
		}
	}
	if reached != 2 {
		t.Errorf("handler reached %d times, want 2", reached)
	}
	if d.SuspiciousRequests() != 2 {
		t.Errorf("SuspiciousRequests = %d, want 2", d.SuspiciousRequests())
	}
}
