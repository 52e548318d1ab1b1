// security.go provides Gin middleware that injects protective HTTP response headers. The
// service only serves JSON, so the policy denies every embedding and resource load.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/outstaff/outstaff/internal/config"
)

// SecurityHeadersConfig holds configuration for security headers
type SecurityHeadersConfig struct {
	// EnableHSTS is only meaningful when the server terminates TLS itself
	EnableHSTS            bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	// FrameOptionsValue is sent as X-Frame-Options (DENY, SAMEORIGIN); empty disables it
	FrameOptionsValue        string
	EnableContentTypeOptions bool
	ContentSecurityPolicy    string
	ReferrerPolicy           string
	PermissionsPolicy        string
}

// APISecurityHeadersConfig returns the header set used for the JSON API
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:               true,
		HSTSMaxAge:               31536000, // 1 year
		HSTSIncludeSubdomains:    true,
		FrameOptionsValue:        "DENY",
		EnableContentTypeOptions: true,
		ContentSecurityPolicy:    "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:           "no-referrer",
		PermissionsPolicy:        "geolocation=(), microphone=(), camera=()",
	}
}

// SecurityHeadersFromSettings returns the API header set, sending HSTS only when TLS is on
func SecurityHeadersFromSettings(tls config.TLSConfig) SecurityHeadersConfig {
	cfg := APISecurityHeadersConfig()
	cfg.EnableHSTS = tls.Enabled
	return cfg
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) gin.HandlerFunc {
	hsts := ""
	if cfg.EnableHSTS {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		if cfg.FrameOptionsValue != "" {
			h.Set("X-Frame-Options", cfg.FrameOptionsValue)
		}
		if cfg.EnableContentTypeOptions {
			h.Set("X-Content-Type-Options", "nosniff")
		}
		if cfg.ContentSecurityPolicy != "" {
			h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
		}
		if cfg.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)
		}
		if cfg.PermissionsPolicy != "" {
			h.Set("Permissions-Policy", cfg.PermissionsPolicy)
		}

		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		// Attachment downloads are fetched cross-origin by the web client
		h.Set("Cross-Origin-Resource-Policy", "same-site")

		c.Next()
	}
}
