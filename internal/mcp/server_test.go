// internal/mcp/server_test.go
package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/colebrumley/cnrewrite/internal/customization"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/colebrumley/cnrewrite/internal/stats"
)

func TestNewServer(t *testing.T) {
	server := NewServer(rewrite.Static("$U"), nil, nil)
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	if server.HTTPHandler() == nil {
		t.Error("HTTPHandler() returned nil")
	}
}

func TestToolHandlers(t *testing.T) {
	counters := &stats.Counters{}
	var emitted []rewrite.Diagnostic
	sink := rewrite.SinkFunc(func(d rewrite.Diagnostic) { emitted = append(emitted, d) })
	server := NewServer(rewrite.Static("$U-$P"), sink, counters)
	ctx := context.Background()

	t.Run("rewrite with configured rule", func(t *testing.T) {
		_, output, err := server.handleRewrite(ctx, nil, RewriteInput{
			Context: ContextInput{
				UserIdentityName: "alice@corp",
				Headers: []customization.Header{
					{Name: "User-Agent", Values: []string{"CitrixReceiver MacOSX"}},
				},
			},
		})
		if err != nil {
			t.Fatalf("handleRewrite() error = %v", err)
		}
		if output.ClientName != "alice-MA" {
			t.Errorf("handleRewrite() client name = %q, want %q", output.ClientName, "alice-MA")
		}
		if !output.Rewritten || output.Outcome != "rewritten" {
			t.Errorf("unexpected outcome: %+v", output)
		}
		if len(output.Diagnostics) == 0 || output.Diagnostics[0].Level != "info" {
			t.Errorf("expected info diagnostics, got %+v", output.Diagnostics)
		}
		if counters.Snapshot().Rewritten != 1 {
			t.Errorf("expected rewrite to be counted")
		}
		if len(emitted) != len(output.Diagnostics) {
			t.Errorf("sink received %d diagnostics, want %d", len(emitted), len(output.Diagnostics))
		}
	})

	t.Run("rewrite with rule override", func(t *testing.T) {
		_, output, err := server.handleRewrite(ctx, nil, RewriteInput{
			Context: ContextInput{ClaimsPrincipal: `CORP\bob`},
			Rule:    "$D-$R",
		})
		if err != nil {
			t.Fatalf("handleRewrite() error = %v", err)
		}
		if output.ClientName != "CORP-I" {
			t.Errorf("handleRewrite() client name = %q, want %q", output.ClientName, "CORP-I")
		}
		if counters.Snapshot().Total() != 1 {
			t.Error("previews with a rule override should not be counted")
		}
	})

	t.Run("rewrite with illegal override", func(t *testing.T) {
		_, output, err := server.handleRewrite(ctx, nil, RewriteInput{Rule: "a|b"})
		if err != nil {
			t.Fatalf("handleRewrite() error = %v", err)
		}
		if output.Rewritten || output.Outcome != "illegal_chars" {
			t.Errorf("expected illegal_chars outcome, got %+v", output)
		}
		if output.Diagnostics[0].Level != "error" {
			t.Errorf("expected error diagnostic, got %+v", output.Diagnostics)
		}
	})

	t.Run("validate configured rule", func(t *testing.T) {
		_, output, err := server.handleValidateRule(ctx, nil, ValidateRuleInput{})
		if err != nil {
			t.Fatalf("handleValidateRule() error = %v", err)
		}
		if !output.Valid || output.Rule != "$U-$P" {
			t.Errorf("unexpected output: %+v", output)
		}
		if strings.Join(output.Tokens, ",") != "$U,$P" {
			t.Errorf("tokens = %v", output.Tokens)
		}
	})

	t.Run("validate unknown tokens", func(t *testing.T) {
		_, output, _ := server.handleValidateRule(ctx, nil, ValidateRuleInput{Rule: "$Q$U"})
		if !output.Valid {
			t.Errorf("unknown tokens do not make a rule invalid: %+v", output)
		}
		if len(output.UnknownTokens) != 1 || output.UnknownTokens[0] != "$Q" {
			t.Errorf("unknown tokens = %v", output.UnknownTokens)
		}
	})

	t.Run("validate illegal rule", func(t *testing.T) {
		_, output, _ := server.handleValidateRule(ctx, nil, ValidateRuleInput{Rule: "$U:$D"})
		if output.Valid {
			t.Error("expected invalid rule")
		}
		if !strings.Contains(output.Message, "illegal characters") {
			t.Errorf("message = %q", output.Message)
		}
	})
}

func TestValidateRuleAbsent(t *testing.T) {
	server := NewServer(rewrite.StaticRule{}, nil, nil)
	_, output, err := server.handleValidateRule(context.Background(), nil, ValidateRuleInput{})
	if err != nil {
		t.Fatalf("handleValidateRule() error = %v", err)
	}
	if output.Valid || !strings.Contains(output.Message, "setting absent") {
		t.Errorf("unexpected output: %+v", output)
	}
}

func TestHTTPHandlerRejectsDeleteWithoutSession(t *testing.T) {
	server := NewServer(rewrite.Static("$U"), nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)

	server.HTTPHandler().ServeHTTP(rec, req)

	if rec.Code < 400 {
		t.Errorf("expected an error status for a sessionless DELETE, got %d", rec.Code)
	}
}
