// internal/rewrite/resolve.go
package rewrite

import (
	"strings"

	"github.com/colebrumley/cnrewrite/internal/customization"
)

// Directive describes one supported token letter.
type Directive struct {
	Letter      rune
	Description string
}

// Directives lists the supported tokens in documentation order.
var Directives = []Directive{
	{'U', "user name, without any @domain suffix"},
	{'D', "user domain, from the claims principal"},
	{'N', "current client name"},
	{'R', "roaming status: I internal, E external"},
	{'A', "detected address"},
	{'S', "supplied address"},
	{'V', "device id"},
	{'G', "gateway name, without domain"},
	{'P', "platform code (WI MA LI IO AN CH BL WP WR BR UN)"},
}

// IsDirective reports whether letter is a supported token.
func IsDirective(letter rune) bool {
	for _, d := range Directives {
		if d.Letter == letter {
			return true
		}
	}
	return false
}

// Platform codes.
const (
	PlatformUnknown = "UN"
	PlatformBrowser = "BR"
)

// receiverMarker identifies a native client user agent.
const receiverMarker = "CitrixReceiver"

// platforms are tested in order; the first substring found wins.
var platforms = []struct {
	substr string
	code   string
}{
	{"Windows", "WI"},
	{"MacOSX", "MA"},
	{"Linux", "LI"},
	{"iOS", "IO"},
	{"Android", "AN"},
	{"Chromebook", "CH"},
	{"Blackberry", "BL"},
	{"WindowsPhone", "WP"},
	{"WindowsRT", "WR"},
}

// UserName strips an @domain suffix from identity.
func UserName(identity string) string {
	user, _, _ := strings.Cut(identity, "@")
	return user
}

// RoamingStatus is "E" when the request came through a gateway and "I"
// otherwise. Only the presence of the gateway header matters.
func RoamingStatus(h customization.Headers) string {
	if h.Has(customization.HeaderCitrixVia) {
		return "E"
	}
	return "I"
}

// GatewayName is the gateway host without its domain, or empty when the
// request did not come through a gateway.
func GatewayName(h customization.Headers) string {
	via, ok := h.Lookup(customization.HeaderCitrixVia)
	if !ok {
		return ""
	}
	host, _, _ := strings.Cut(via, ".")
	return host
}

// Platform classifies the client from its user agent.
func Platform(h customization.Headers) string {
	ua, ok := h.Lookup(customization.HeaderUserAgent)
	if !ok {
		return PlatformUnknown
	}
	return PlatformFromUserAgent(ua)
}

// PlatformFromUserAgent classifies a user agent string that is known to be
// present.
func PlatformFromUserAgent(ua string) string {
	if !strings.Contains(ua, receiverMarker) {
		return PlatformBrowser
	}
	for _, p := range platforms {
		if strings.Contains(ua, p.substr) {
			return p.code
		}
	}
	return PlatformUnknown
}

// SplitDomain extracts the domain from domain\user or user@domain. The
// boolean is false when name has neither form.
func SplitDomain(name string) (string, bool) {
	if domain, _, ok := strings.Cut(name, `\`); ok {
		return domain, true
	}
	if _, domain, ok := strings.Cut(name, "@"); ok {
		return domain, true
	}
	return "", false
}

type resolver struct {
	ctx  customization.Context
	diag *collector
}

// resolve returns the value for letter. The boolean is false for letters
// that are not supported tokens.
func (r *resolver) resolve(letter rune) (string, bool) {
	c := r.ctx
	switch letter {
	case 'U':
		return UserName(c.UserIdentityName), true
	case 'V':
		return c.DeviceInfo.DeviceID, true
	case 'N':
		// Browser clients carry a generated name here, not the machine name.
		return c.DeviceInfo.ClientName, true
	case 'R':
		return RoamingStatus(c.Headers), true
	case 'G':
		return GatewayName(c.Headers), true
	case 'A':
		return c.DeviceInfo.DetectedAddress, true
	case 'S':
		return c.DeviceInfo.SuppliedAddress, true
	case 'P':
		return Platform(c.Headers), true
	case 'D':
		return r.domain(), true
	default:
		return "", false
	}
}

func (r *resolver) domain() string {
	p := r.ctx.ClaimsPrincipal
	if p == nil {
		r.diag.warnf("no claims principal available for user domain")
		return ""
	}
	r.diag.infof("claims principal name [%s] type [%s]", p.Name, p.AuthenticationType)

	domain, ok := SplitDomain(p.Name)
	if !ok {
		r.diag.errorf("invalid form of user string: %s", p.Name)
		return ""
	}
	return domain
}
