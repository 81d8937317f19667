package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Check is one named readiness probe.
type Check func(ctx context.Context) (ok bool, detail string)

// Service encapsulates health-related checks.
type Service struct {
	checks map[string]Check
	now    func() time.Time
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: make(map[string]Check), now: time.Now}
}

// Register adds a named check. Registering a name twice replaces the check.
func (s *Service) Register(name string, check Check) {
	s.checks[name] = check
}

// Database registers a ping check against db.
func (s *Service) Database(db Pinger) {
	if db == nil {
		return
	}
	s.Register("database", func(ctx context.Context) (bool, string) {
		if err := db.PingContext(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
}

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	TS     string            `json:"ts"`
	Checks map[string]Result `json:"checks,omitempty"`
}

// Result is the outcome of one check.
type Result struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Status runs every check. The service is healthy when all checks pass.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, TS: s.now().UTC().Format(time.RFC3339)}
	if len(s.checks) == 0 {
		return report
	}
	report.Checks = make(map[string]Result, len(s.checks))
	for name, check := range s.checks {
		ok, detail := check(ctx)
		report.Checks[name] = Result{OK: ok, Detail: detail}
		report.OK = report.OK && ok
	}
	return report
}
