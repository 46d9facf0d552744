// internal/customization/context.go
package customization

// Context is the per-request data a host customization pipeline hands to the
// rewriter. It is treated as read-only.
type Context struct {
	UserIdentityName string     `json:"user_identity_name"`
	ClaimsPrincipal  *Principal `json:"claims_principal,omitempty"` // nil when the host has no claims principal
	DeviceInfo       DeviceInfo `json:"device_info"`
	Headers          Headers    `json:"headers,omitempty"`
}

// Principal is the authenticated, domain-qualified identity. Name is either
// domain\user or user@domain.
type Principal struct {
	Name               string `json:"name"`
	AuthenticationType string `json:"authentication_type,omitempty"`
}

// DeviceInfo describes the connecting client device.
type DeviceInfo struct {
	DeviceID        string `json:"device_id"`
	ClientName      string `json:"client_name"`
	DetectedAddress string `json:"detected_address"`
	SuppliedAddress string `json:"supplied_address"`
}

// WithClientName returns a copy of d with ClientName replaced.
func (d DeviceInfo) WithClientName(name string) DeviceInfo {
	d.ClientName = name
	return d
}
