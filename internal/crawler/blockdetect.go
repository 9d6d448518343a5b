package crawler

import (
	"bytes"
	"net/http"
)

// BlockType names the kind of anti-bot interstitial served instead of a page.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// interstitialMaxBytes bounds the size of a body that can be treated as a
// bare captcha wall. Larger pages that merely embed a captcha widget are
// real content.
const interstitialMaxBytes = 4096

var cloudflareMarkers = [][]byte{
	[]byte("cf-browser-verification"),
	[]byte("checking your browser before accessing"),
	[]byte("/cdn-cgi/challenge-platform/"),
}

var captchaMarkers = [][]byte{
	[]byte("g-recaptcha"),
	[]byte("h-captcha"),
	[]byte("cf-turnstile"),
	[]byte("verify you are human"),
}

// DetectBlock reports whether a successful response is really a challenge
// page. Only the body and the Server header are consulted.
func DetectBlock(header http.Header, body []byte) BlockType {
	lower := bytes.ToLower(body)
	for _, m := range cloudflareMarkers {
		if bytes.Contains(lower, m) {
			return BlockCloudflare
		}
	}
	if header.Get("Server") == "cloudflare" && bytes.Contains(lower, []byte("just a moment")) {
		return BlockCloudflare
	}
	if len(body) <= interstitialMaxBytes {
		for _, m := range captchaMarkers {
			if bytes.Contains(lower, m) {
				return BlockCaptcha
			}
		}
	}
	return BlockNone
}
