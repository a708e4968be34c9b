// Package security sets the response headers of the expense API. Replies are
// JSON, CSV downloads or event streams; none is ever rendered as a page.
package security

import (
	"net/http"
	"strconv"
	"time"
)

// Policy lists the headers every reply carries. Empty values are not sent.
type Policy struct {
	ContentSecurity   string
	FrameOptions      string
	ReferrerPolicy    string
	ResourcePolicy    string
	PermissionsPolicy string
	// HSTS is sent on TLS requests only. Zero disables it.
	HSTS           time.Duration
	HSTSSubdomains bool
}

func APIPolicy() Policy {
	return Policy{
		ContentSecurity:   "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:      "DENY",
		ReferrerPolicy:    "no-referrer",
		ResourcePolicy:    "same-origin",
		PermissionsPolicy: "camera=(), microphone=(), geolocation=(), payment=()",
		HSTS:              365 * 24 * time.Hour,
		HSTSSubdomains:    true,
	}
}

// Headers returns middleware applying p. Values are rendered once up front.
func Headers(p Policy) func(http.Handler) http.Handler {
	fixed := [][2]string{{"X-Content-Type-Options", "nosniff"}}
	for _, h := range [][2]string{
		{"Content-Security-Policy", p.ContentSecurity},
		{"X-Frame-Options", p.FrameOptions},
		{"Referrer-Policy", p.ReferrerPolicy},
		{"Cross-Origin-Resource-Policy", p.ResourcePolicy},
		{"Permissions-Policy", p.PermissionsPolicy},
	} {
		if h[1] != "" {
			fixed = append(fixed, h)
		}
	}

	var hsts string
	if p.HSTS > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(p.HSTS/time.Second), 10)
		if p.HSTSSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			for _, h := range fixed {
				header.Set(h[0], h[1])
			}
			if hsts != "" && r.TLS != nil {
				header.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable; exports and streams carry personal data.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
