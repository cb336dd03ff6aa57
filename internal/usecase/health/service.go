package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckLoading indicates the engine is still restoring templates.
	CheckLoading CheckResult = "loading"
)

const defaultPingTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Templates int                    `json:"templates"`
}

// Service coordinates health checks.
type Service struct {
	db          DBPinger
	engine      EngineChecker
	pingTimeout time.Duration
}

// New creates a Service. A nil engine skips the engine check.
func New(db DBPinger, engine EngineChecker) *Service {
	return &Service{db: db, engine: engine, pingTimeout: defaultPingTimeout}
}

// WithPingTimeout bounds the database ping so a hung store cannot stall probes.
func (s *Service) WithPingTimeout(d time.Duration) *Service {
	if d > 0 {
		s.pingTimeout = d
	}
	return s
}

// Check pings the database and asks the engine whether it finished loading.
// Any result other than CheckOK degrades the report.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, 2)}

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	r.Checks["database"] = CheckOK
	if err := s.db.Ping(pingCtx); err != nil {
		r.Checks["database"] = CheckError
	}

	if s.engine != nil {
		r.Checks["engine"] = CheckLoading
		if s.engine.Loaded() {
			r.Checks["engine"] = CheckOK
			r.Templates = s.engine.Len()
		}
	}

	for _, v := range r.Checks {
		if v != CheckOK {
			r.Status = Degraded
			break
		}
	}
	return r
}
