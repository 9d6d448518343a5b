package crawler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		body   string
		want   BlockType
	}{
		{"plain page", http.Header{}, "<html><body><p>Welcome to Acme</p></body></html>", BlockNone},
		{"cloudflare verification", http.Header{}, `<div id="cf-browser-verification">`, BlockCloudflare},
		{"cloudflare challenge script", http.Header{}, `<script src="/cdn-cgi/challenge-platform/h/b/orchestrate"></script>`, BlockCloudflare},
		{"cloudflare just a moment", http.Header{"Server": {"cloudflare"}}, "<title>Just a moment...</title>", BlockCloudflare},
		{"just a moment elsewhere", http.Header{"Server": {"nginx"}}, "<title>Just a moment...</title>", BlockNone},
		{"captcha wall", http.Header{}, `<form><div class="g-recaptcha"></div></form>`, BlockCaptcha},
		{"turnstile wall", http.Header{}, `<p>Verify you are human</p>`, BlockCaptcha},
		{
			"contact form with captcha",
			http.Header{},
			"<html><body>" + strings.Repeat("<p>Our services and team.</p>", 300) + `<div class="g-recaptcha"></div></body></html>`,
			BlockNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBlock(tt.header, []byte(tt.body)))
		})
	}
}
