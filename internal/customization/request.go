// internal/customization/request.go
package customization

import (
	"net"
	"net/http"
	"strings"
)

// Headers a fronting proxy uses to pass identity and device data when the
// context is derived from the request itself.
const (
	HeaderRemoteUser      = "X-Remote-User"
	HeaderClaimsPrincipal = "X-Claims-Principal"
	HeaderClaimsAuthType  = "X-Claims-Auth-Type"
	HeaderDeviceID        = "X-Device-Id"
	HeaderClientName      = "X-Client-Name"
	HeaderForwardedFor    = "X-Forwarded-For"
)

// FromRequest builds a Context from an incoming HTTP request.
func FromRequest(r *http.Request) Context {
	c := Context{
		UserIdentityName: r.Header.Get(HeaderRemoteUser),
		DeviceInfo: DeviceInfo{
			DeviceID:        r.Header.Get(HeaderDeviceID),
			ClientName:      r.Header.Get(HeaderClientName),
			DetectedAddress: remoteHost(r.RemoteAddr),
			SuppliedAddress: firstForwarded(r.Header.Get(HeaderForwardedFor)),
		},
		Headers: FromHTTP(r.Header),
	}

	if values, ok := r.Header[http.CanonicalHeaderKey(HeaderClaimsPrincipal)]; ok && len(values) > 0 {
		c.ClaimsPrincipal = &Principal{
			Name:               values[0],
			AuthenticationType: r.Header.Get(HeaderClaimsAuthType),
		}
	}
	return c
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func firstForwarded(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
