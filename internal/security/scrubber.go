// internal/security/scrubber.go
package security

import (
	"regexp"
	"strings"

	"github.com/colebrumley/cnrewrite/internal/customization"
)

const redacted = "[REDACTED]"

// sensitiveHeaders never appear in logs with their values.
var sensitiveHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	"Set-Cookie",
	"X-Citrix-Session-Token",
}

var (
	bearerPattern = regexp.MustCompile(`Bearer\s+\S{20,}`)
	// Long hex strings (32+ chars) are likely keys or session ids
	hexKeyPattern = regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`)
)

// ScrubOutput redacts token-like substrings.
func ScrubOutput(output string) string {
	result := bearerPattern.ReplaceAllString(output, "Bearer "+redacted)
	result = hexKeyPattern.ReplaceAllString(result, redacted)
	return result
}

// ScrubHeaders returns a copy of h that is safe to log: sensitive headers
// have their values replaced and the rest are passed through ScrubOutput.
func ScrubHeaders(h customization.Headers) customization.Headers {
	if h == nil {
		return nil
	}
	out := make(customization.Headers, len(h))
	for i, hdr := range h {
		values := make([]string, len(hdr.Values))
		for j, v := range hdr.Values {
			if isSensitive(hdr.Name) {
				values[j] = redacted
				continue
			}
			values[j] = ScrubOutput(v)
		}
		out[i] = customization.Header{Name: hdr.Name, Values: values}
	}
	return out
}

func isSensitive(name string) bool {
	for _, s := range sensitiveHeaders {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
