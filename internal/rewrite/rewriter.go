// internal/rewrite/rewriter.go
package rewrite

import (
	"errors"
	"strings"

	"github.com/colebrumley/cnrewrite/internal/customization"
	"github.com/colebrumley/cnrewrite/internal/template"
)

// Outcome summarizes what a rewrite did.
type Outcome string

const (
	OutcomeRewritten    Outcome = "rewritten"
	OutcomeNoRule       Outcome = "no_rule"
	OutcomeIllegalChars Outcome = "illegal_chars"
)

// Result is the outcome of evaluating a rule against a context. ClientName
// is only meaningful when Rewritten is true.
type Result struct {
	ClientName    string       `json:"client_name,omitempty"`
	Rewritten     bool         `json:"rewritten"`
	Outcome       Outcome      `json:"outcome"`
	Truncated     bool         `json:"truncated,omitempty"`
	UnknownTokens int          `json:"unknown_tokens,omitempty"`
	Diagnostics   []Diagnostic `json:"diagnostics"`
}

// RuleProvider supplies the configured rule. The boolean is false when no
// rule is configured at all, as opposed to configured empty.
type RuleProvider interface {
	Rule() (string, bool)
}

// StaticRule is a RuleProvider with a fixed rule.
type StaticRule struct {
	Value   string
	Present bool
}

// Static returns a RuleProvider that always supplies rule.
func Static(rule string) StaticRule {
	return StaticRule{Value: rule, Present: true}
}

func (s StaticRule) Rule() (string, bool) { return s.Value, s.Present }

// Rewriter applies the configured rule to customization contexts. It holds no
// per-call state and is safe for concurrent use.
type Rewriter struct {
	rules RuleProvider
	sink  Sink
}

// New creates a Rewriter. A nil sink discards diagnostics.
func New(rules RuleProvider, sink Sink) *Rewriter {
	if sink == nil {
		sink = Discard
	}
	return &Rewriter{rules: rules, sink: sink}
}

// Rewrite evaluates the configured rule against c.
func (rw *Rewriter) Rewrite(c customization.Context) Result {
	rule, ok := rw.rules.Rule()
	res := evaluate(rule, ok, c)
	rw.emit(res.Diagnostics)
	return res
}

// Modify returns c's device info with the client name replaced by the
// rewrite result. The device info is returned unchanged when the rewrite was
// skipped.
func (rw *Rewriter) Modify(c customization.Context) (customization.DeviceInfo, Result) {
	rule, ok := rw.rules.Rule()
	res := evaluate(rule, ok, c)
	device := c.DeviceInfo
	if res.Rewritten {
		device = device.WithClientName(res.ClientName)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Level:   LevelInfo,
			Message: "client name post rewrite = " + res.ClientName,
		})
	}
	rw.emit(res.Diagnostics)
	return device, res
}

func (rw *Rewriter) emit(diags []Diagnostic) {
	for _, d := range diags {
		rw.sink.Emit(d)
	}
}

// Apply evaluates rule against c without a provider or sink.
func Apply(rule string, c customization.Context) Result {
	return evaluate(rule, true, c)
}

func evaluate(rule string, present bool, c customization.Context) Result {
	diag := &collector{}

	if !present {
		diag.errorf("no client name rewrite rule supplied (setting absent)")
		return Result{Outcome: OutcomeNoRule, Diagnostics: diag.diags}
	}

	if err := Validate(rule); err != nil {
		if errors.Is(err, ErrNoRule) {
			diag.errorf("no client name rewrite rule supplied")
			return Result{Outcome: OutcomeNoRule, Diagnostics: diag.diags}
		}
		diag.errorf("client name rule %s contains illegal characters", rule)
		return Result{Outcome: OutcomeIllegalChars, Diagnostics: diag.diags}
	}
	diag.infof("using rule: %s", rule)

	r := &resolver{ctx: c, diag: diag}
	unknown := 0
	var b strings.Builder
	for tok := range template.Tokens(rule) {
		switch tok.Kind {
		case template.Literal:
			b.WriteString(tok.Text)
		case template.Dangling:
			diag.warnf("client name rule ends with a dangling %c", template.Marker)
			b.WriteString(tok.Text)
		case template.Directive:
			value, ok := r.resolve(tok.Letter)
			if !ok {
				unknown++
				diag.warnf("client name rule has unknown token %s", tok.Text)
				value = tok.Text
			}
			b.WriteString(value)
		}
	}

	raw := b.String()
	diag.infof("rewrite done: %s", raw)
	name := Truncate(raw)

	return Result{
		ClientName:    name,
		Rewritten:     true,
		Outcome:       OutcomeRewritten,
		Truncated:     name != raw,
		UnknownTokens: unknown,
		Diagnostics:   diag.diags,
	}
}
