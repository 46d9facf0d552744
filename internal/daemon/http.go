// internal/daemon/http.go
package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/colebrumley/cnrewrite/internal/config"
	"github.com/colebrumley/cnrewrite/internal/customization"
	"github.com/colebrumley/cnrewrite/internal/logging"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/colebrumley/cnrewrite/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxBodyBytes    = 1 << 20
	healthRateLimit = 60
	requestIDHeader = "X-Request-Id"
)

type requestIDKey struct{}

// modifyResponse is returned by every rewrite endpoint.
type modifyResponse struct {
	RequestID   string                   `json:"request_id"`
	DeviceInfo  customization.DeviceInfo `json:"device_info"`
	ClientName  string                   `json:"client_name,omitempty"`
	Rewritten   bool                     `json:"rewritten"`
	Outcome     rewrite.Outcome          `json:"outcome"`
	Truncated   bool                     `json:"truncated,omitempty"`
	Diagnostics []rewrite.Diagnostic     `json:"diagnostics"`
}

// previewRequest evaluates Rule instead of the configured rule. A missing
// rule falls back to the configured one.
type previewRequest struct {
	Rule    *string               `json:"rule"`
	Context customization.Context `json:"context"`
}

// Handler returns the daemon's HTTP routes.
func (d *Daemon) Handler(cfg config.ServerConfig) http.Handler {
	rateLimit := cfg.RateLimitPerMinute
	if rateLimit <= 0 {
		rateLimit = config.DefaultRateLimit
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/health", rateLimitHandler(healthRateLimit, d.handleHealth))
	r.Get("/api/stats", rateLimitHandler(healthRateLimit, d.handleStats))

	// Everything that evaluates a rule sits behind the secret
	r.Group(func(r chi.Router) {
		if cfg.RequireSecret {
			r.Use(d.secretMiddleware(cfg.SecretHeader, os.Getenv(cfg.SecretEnvVar)))
		}

		r.Route("/v1", func(r chi.Router) {
			r.Post("/modify", rateLimitHandler(rateLimit, d.handleModify))
			r.Post("/preview", rateLimitHandler(rateLimit, d.handlePreview))
			r.Get("/request", rateLimitHandler(rateLimit, d.handleRequest))
		})

		if d.mcp != nil {
			r.Handle("/mcp", rateLimitHandler(rateLimit, d.mcp.HTTPHandler().ServeHTTP))
		}
	})

	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// secretMiddleware rejects requests whose header does not carry secret. An
// empty secret rejects everything, so a missing env var fails closed.
func (d *Daemon) secretMiddleware(header, secret string) func(http.Handler) http.Handler {
	if secret == "" {
		d.logger.Error("CRITICAL: server.require_secret is set but the secret is empty, /v1 and /mcp are disabled")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				d.requestLogger(r).Warn("rejected request with missing or wrong secret", "path", r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (d *Daemon) requestLogger(r *http.Request) *slog.Logger {
	return logging.WithRequest(d.logger, requestID(r.Context()))
}

// handleHealth returns daemon health status.
func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, configured := d.watcher.Rule()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"uptime":          time.Since(d.startTime).Truncate(time.Second).String(),
		"rule_configured": configured,
	})
}

func (d *Daemon) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.counters.Snapshot())
}

// handleModify rewrites the client name in a posted customization context.
func (d *Daemon) handleModify(w http.ResponseWriter, r *http.Request) {
	var c customization.Context
	if !decodeBody(w, r, &c) {
		return
	}
	d.modify(w, r, d.watcher, c, true)
}

// handlePreview evaluates an ad-hoc rule. Results are not counted.
func (d *Daemon) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var rules rewrite.RuleProvider = d.watcher
	if req.Rule != nil {
		rules = rewrite.Static(*req.Rule)
	}
	d.modify(w, r, rules, req.Context, false)
}

// handleRequest rewrites using a context built from the request's own
// headers, for deployments where a proxy forwards identity headers.
func (d *Daemon) handleRequest(w http.ResponseWriter, r *http.Request) {
	d.modify(w, r, d.watcher, customization.FromRequest(r), true)
}

func (d *Daemon) modify(w http.ResponseWriter, r *http.Request, rules rewrite.RuleProvider, c customization.Context, record bool) {
	logger := d.requestLogger(r)
	logger.Debug("customization context",
		"user", security.SanitizeValue(c.UserIdentityName),
		"client_name", security.SanitizeValue(c.DeviceInfo.ClientName),
		"headers", security.ScrubHeaders(c.Headers),
	)

	device, res := d.rewriter(rules, logger).Modify(c)
	if record {
		d.counters.Record(res)
	}

	writeJSON(w, http.StatusOK, modifyResponse{
		RequestID:   requestID(r.Context()),
		DeviceInfo:  device,
		ClientName:  res.ClientName,
		Rewritten:   res.Rewritten,
		Outcome:     res.Outcome,
		Truncated:   res.Truncated,
		Diagnostics: res.Diagnostics,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "invalid request body: "+err.Error(), status)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// rateLimitHandler wraps an HTTP handler with a simple token-bucket rate limiter.
func rateLimitHandler(requestsPerMinute int, handler http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	tokens := requestsPerMinute
	lastRefill := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		now := time.Now()
		elapsed := now.Sub(lastRefill)
		refill := int(elapsed.Minutes() * float64(requestsPerMinute))
		if refill > 0 {
			tokens += refill
			if tokens > requestsPerMinute {
				tokens = requestsPerMinute
			}
			lastRefill = now
		}

		if tokens <= 0 {
			mu.Unlock()
			w.Header().Set("Retry-After", strconv.Itoa(60/max(requestsPerMinute, 1)+1))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		tokens--
		mu.Unlock()

		handler(w, r)
	}
}
