package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type CheckResult struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type Report struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Check returns nil when the dependency is usable.
type Check func(ctx context.Context) error

type registered struct {
	name     string
	critical bool
	check    Check
}

// Service runs registered dependency checks. A failing critical check makes
// the process unready; any other failure only degrades it.
type Service struct {
	version string
	timeout time.Duration
	start   time.Time
	log     *zap.Logger

	mu     sync.RWMutex
	checks []registered
}

func NewService(version string, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		version: version,
		timeout: timeout,
		start:   time.Now(),
		log:     log,
	}
}

func (s *Service) Register(name string, critical bool, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, registered{name: name, critical: critical, check: check})
	s.log.Info("Registered health checker", zap.String("name", name), zap.Bool("critical", critical))
}

// Live reports process liveness without touching dependencies.
func (s *Service) Live() *Report {
	return &Report{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   s.version,
		Uptime:    time.Since(s.start).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// Ready runs every check concurrently, each bounded by the service timeout.
func (s *Service) Ready(ctx context.Context) *Report {
	s.mu.RLock()
	checks := append([]registered(nil), s.checks...)
	s.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = s.run(ctx, c)
			return nil
		})
	}
	g.Wait()

	report := s.Live()
	report.Checks = make(map[string]CheckResult, len(results))
	for _, r := range results {
		report.Checks[r.Name] = r
		switch {
		case r.Status == StatusUnhealthy:
			report.Status = StatusUnhealthy
			report.Ready = false
		case r.Status == StatusDegraded && report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (s *Service) run(ctx context.Context, c registered) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := c.check(checkCtx)
	result := CheckResult{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err == nil {
		return result
	}

	result.Message = err.Error()
	result.Status = StatusDegraded
	if c.critical {
		result.Status = StatusUnhealthy
	}
	s.log.Warn("Health check failed",
		zap.String("name", c.name),
		zap.String("status", string(result.Status)),
		zap.Error(err),
	)
	return result
}
