package probe

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Report holds the outcome of one probe run.
type Report struct {
	Checked   []string
	Missing   []string
	CheckedAt time.Time
	Ready     bool
	Err       error
}

// Prober checks that the site can serve its required files.
type Prober interface {
	Probe(ctx context.Context) (Report, error)
}

// Manager periodically refreshes and stores probe reports. Readers always
// see the report, readiness and error of the same run.
type Manager struct {
	prober          Prober
	refreshInterval time.Duration
	onRefresh       func(err error)

	report atomic.Pointer[Report]
}

func NewManager(prober Prober, refreshInterval time.Duration) *Manager {
	return &Manager{
		prober:          prober,
		refreshInterval: refreshInterval,
	}
}

// OnRefresh registers a hook called after every refresh. Not safe to call
// concurrently with Refresh.
func (m *Manager) OnRefresh(fn func(err error)) {
	m.onRefresh = fn
}

func (m *Manager) Refresh(ctx context.Context) error {
	report, err := m.prober.Probe(ctx)
	report.CheckedAt = time.Now().UTC()
	report.Ready = err == nil
	report.Err = err
	m.report.Store(&report)

	if m.onRefresh != nil {
		m.onRefresh(err)
	}
	return err
}

func (m *Manager) Start(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := m.Refresh(refreshCtx)
			cancel()
			if err != nil {
				logger.Warn("readiness probe failed", "error", err)
				continue
			}
			logger.Debug("readiness probe passed")
		}
	}
}

func (m *Manager) Snapshot() (Report, bool) {
	current := m.report.Load()
	if current == nil {
		return Report{}, false
	}
	return *current, current.Ready
}

func (m *Manager) Ready() bool {
	current := m.report.Load()
	return current != nil && current.Ready
}

func (m *Manager) LastError() error {
	if current := m.report.Load(); current != nil {
		return current.Err
	}
	return nil
}
