// internal/mcp/server.go
package mcp

import (
	"context"
	"net/http"
	"strings"

	"github.com/colebrumley/cnrewrite/internal/customization"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/colebrumley/cnrewrite/internal/stats"
	"github.com/colebrumley/cnrewrite/internal/template"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the client name rewriter as MCP tools
type Server struct {
	rules    rewrite.RuleProvider
	sink     rewrite.Sink
	counters *stats.Counters
	server   *mcp.Server
}

// ContextInput is the customization context accepted by the tools
type ContextInput struct {
	UserIdentityName   string                 `json:"user_identity_name,omitempty" jsonschema:"User identity: user, user@domain or domain\\user"`
	ClaimsPrincipal    string                 `json:"claims_principal,omitempty" jsonschema:"Domain-qualified claims principal name; omit when unavailable"`
	AuthenticationType string                 `json:"authentication_type,omitempty" jsonschema:"Authentication type of the claims principal"`
	DeviceID           string                 `json:"device_id,omitempty"`
	ClientName         string                 `json:"client_name,omitempty" jsonschema:"Current client name"`
	DetectedAddress    string                 `json:"detected_address,omitempty"`
	SuppliedAddress    string                 `json:"supplied_address,omitempty"`
	Headers            []customization.Header `json:"headers,omitempty" jsonschema:"Request headers in arrival order"`
}

// RewriteInput is the input schema for the rewrite_client_name tool
type RewriteInput struct {
	Context ContextInput `json:"context"`
	Rule    string       `json:"rule,omitempty" jsonschema:"Rule to evaluate instead of the configured one"`
}

// DiagnosticOutput is a single diagnostic line
type DiagnosticOutput struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RewriteOutput is the output schema for the rewrite_client_name tool
type RewriteOutput struct {
	ClientName  string             `json:"client_name"`
	Rewritten   bool               `json:"rewritten"`
	Outcome     string             `json:"outcome"`
	Truncated   bool               `json:"truncated"`
	Diagnostics []DiagnosticOutput `json:"diagnostics"`
}

// ValidateRuleInput is the input schema for the validate_rule tool
type ValidateRuleInput struct {
	Rule string `json:"rule,omitempty" jsonschema:"Rule to check; the configured rule when omitted"`
}

// ValidateRuleOutput is the output schema for the validate_rule tool
type ValidateRuleOutput struct {
	Rule          string   `json:"rule"`
	Valid         bool     `json:"valid"`
	Message       string   `json:"message"`
	Tokens        []string `json:"tokens"`
	UnknownTokens []string `json:"unknown_tokens,omitempty"`
}

// NewServer creates a new MCP server with rewrite tools. counters may be nil.
func NewServer(rules rewrite.RuleProvider, sink rewrite.Sink, counters *stats.Counters) *Server {
	s := &Server{rules: rules, sink: sink, counters: counters}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cnrewrite",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rewrite_client_name",
		Description: "Compute the client name the configured rewrite rule produces for a client context. Pass rule to try a different rule without changing configuration.",
	}, s.handleRewrite)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_rule",
		Description: "Check a client name rewrite rule for illegal characters and list the tokens it uses. Tokens: " + tokenSummary(),
	}, s.handleValidateRule)

	s.server = server
	return s
}

func tokenSummary() string {
	parts := make([]string, len(rewrite.Directives))
	for i, d := range rewrite.Directives {
		parts[i] = "$" + string(d.Letter) + " " + d.Description
	}
	return strings.Join(parts, "; ")
}

func (in ContextInput) toContext() customization.Context {
	c := customization.Context{
		UserIdentityName: in.UserIdentityName,
		DeviceInfo: customization.DeviceInfo{
			DeviceID:        in.DeviceID,
			ClientName:      in.ClientName,
			DetectedAddress: in.DetectedAddress,
			SuppliedAddress: in.SuppliedAddress,
		},
		Headers: customization.Headers(in.Headers),
	}
	if in.ClaimsPrincipal != "" {
		c.ClaimsPrincipal = &customization.Principal{
			Name:               in.ClaimsPrincipal,
			AuthenticationType: in.AuthenticationType,
		}
	}
	return c
}

func (s *Server) handleRewrite(ctx context.Context, req *mcp.CallToolRequest, input RewriteInput) (*mcp.CallToolResult, RewriteOutput, error) {
	var rules rewrite.RuleProvider = s.rules
	if input.Rule != "" {
		rules = rewrite.Static(input.Rule)
	}

	res := rewrite.New(rules, s.sink).Rewrite(input.Context.toContext())
	if s.counters != nil && input.Rule == "" {
		s.counters.Record(res)
	}

	out := RewriteOutput{
		ClientName:  res.ClientName,
		Rewritten:   res.Rewritten,
		Outcome:     string(res.Outcome),
		Truncated:   res.Truncated,
		Diagnostics: make([]DiagnosticOutput, len(res.Diagnostics)),
	}
	for i, d := range res.Diagnostics {
		out.Diagnostics[i] = DiagnosticOutput{Level: d.Level.String(), Message: d.Message}
	}
	return nil, out, nil
}

func (s *Server) handleValidateRule(ctx context.Context, req *mcp.CallToolRequest, input ValidateRuleInput) (*mcp.CallToolResult, ValidateRuleOutput, error) {
	rule := input.Rule
	if rule == "" {
		configured, ok := s.rules.Rule()
		if !ok {
			return nil, ValidateRuleOutput{
				Message: rewrite.ErrNoRule.Error() + " (setting absent)",
				Tokens:  []string{},
			}, nil
		}
		rule = configured
	}

	out := ValidateRuleOutput{Rule: rule, Tokens: []string{}}
	for _, letter := range template.Letters(rule) {
		token := "$" + string(letter)
		out.Tokens = append(out.Tokens, token)
		if !rewrite.IsDirective(letter) {
			out.UnknownTokens = append(out.UnknownTokens, token)
		}
	}

	if err := rewrite.Validate(rule); err != nil {
		out.Message = err.Error()
		return nil, out, nil
	}
	out.Valid = true
	out.Message = "rule is valid"
	if len(out.UnknownTokens) > 0 {
		out.Message = "rule is valid; unknown tokens are copied literally"
	}
	return nil, out, nil
}

// Run starts the MCP server on stdio
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the MCP streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}
