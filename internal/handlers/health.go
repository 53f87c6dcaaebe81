package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/andesgear/pos-api/internal/platform/httpx"
)

// Probe checks one downstream dependency for readiness.
type Probe func(ctx context.Context) error

// BuildInfo describes the running binary for health reporting.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// HealthHandlers serves the /healthz and /readyz endpoints.
type HealthHandlers struct {
	build  BuildInfo
	clock  func() time.Time
	probes map[string]Probe
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo attaches build metadata to health responses.
func WithHealthBuildInfo(build BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthClock overrides the time source, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthProbe registers a named readiness probe.
func WithHealthProbe(name string, probe Probe) HealthOption {
	return func(h *HealthHandlers) {
		if name == "" || probe == nil {
			return
		}
		h.probes[name] = probe
	}
}

// NewHealthHandlers constructs health handlers with optional probes.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:  time.Now,
		probes: map[string]Probe{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz reports liveness and build metadata.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	payload := map[string]any{
		"status":    "ok",
		"timestamp": now.Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commitSha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	if !h.build.StartedAt.IsZero() {
		payload["uptime"] = now.Sub(h.build.StartedAt).String()
	}
	httpx.WriteData(w, http.StatusOK, payload)
}

// Readyz runs every registered probe and degrades to 503 when one fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]map[string]any{}
	var failures []string

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		started := h.clock()
		err := h.probes[name](ctx)
		entry := map[string]any{
			"status":    "ok",
			"latencyMs": h.clock().Sub(started).Milliseconds(),
		}
		if err != nil {
			entry["status"] = "failed"
			entry["error"] = err.Error()
			failures = append(failures, name)
		}
		checks[name] = entry
	}

	payload := map[string]any{
		"status": "ok",
		"checks": checks,
	}
	status := http.StatusOK
	if len(failures) > 0 {
		payload["status"] = "degraded"
		payload["failed"] = failures
		status = http.StatusServiceUnavailable
	}
	httpx.WriteData(w, status, payload)
}
