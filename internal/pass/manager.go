package pass

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"redopt/internal/ir"
)

// Pass is one of spec components I-N (or a caller-supplied whole-
// program pass built on them): given a Program and the Scope it was
// asked to cover, it mutates in place. There is no return value
// because spec §7 has no partial-commit or retry story — a pass
// either completes and mutates, or calls into internal/diag and the
// process aborts.
type Pass interface {
	Name() string
	Run(prog *ir.Program, scope *Scope, mgr *PassManager)
}

// PassManager is spec §6's PassManager handle: a metric sink (atomic
// counters, accumulated the way §5 requires process-wide state to be)
// plus the driver-visible logging kanso's OptimizationPipeline.Run got
// from fmt.Printf, generalized to github.com/sirupsen/logrus so a
// driver can route it, level-filter it, or structure it.
type PassManager struct {
	log *logrus.Logger

	mu      sync.Mutex
	metrics map[string]*atomic.Int64
}

// NewPassManager builds a manager logging to log. A nil log gets
// logrus's standard logger.
func NewPassManager(log *logrus.Logger) *PassManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PassManager{log: log, metrics: make(map[string]*atomic.Int64)}
}

func (m *PassManager) counter(name string) *atomic.Int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.metrics[name]
	if !ok {
		c = atomic.NewInt64(0)
		m.metrics[name] = c
	}
	return c
}

// IncrMetric adds delta to the named metric, creating it at zero on
// first use. Safe to call concurrently from a walk.ParallelMethods
// worker (spec §6).
func (m *PassManager) IncrMetric(name string, delta int64) {
	m.counter(name).Add(delta)
}

// SetMetric overwrites the named metric.
func (m *PassManager) SetMetric(name string, value int64) {
	m.counter(name).Store(value)
}

// Metric reads the current value of name, 0 if never touched.
func (m *PassManager) Metric(name string) int64 {
	m.mu.Lock()
	c, ok := m.metrics[name]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Metrics snapshots every metric touched so far, for the driver to
// dump (spec §6: "Metrics are accumulated atomically and dumped by
// the driver").
func (m *PassManager) Metrics() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.metrics))
	for name, c := range m.metrics {
		out[name] = c.Load()
	}
	return out
}

// Run executes passes in order over scope, logging start/end and
// per-pass timing at Debug level the way OptimizationPipeline.Run
// logged each pass's name and whether it changed anything, now through
// a real logger instead of fmt.Printf.
func (m *PassManager) Run(prog *ir.Program, scope *Scope, passes []Pass) {
	m.log.WithField("passes", len(passes)).Info("running pass pipeline")
	for _, p := range passes {
		entry := m.log.WithField("pass", p.Name())
		entry.Debug("pass start")
		start := time.Now()
		p.Run(prog, scope, m)
		entry.WithField("elapsed", time.Since(start)).Debug("pass end")
	}
}

// DumpMetrics logs every metric touched so far at Info level, the
// "dumped by the driver" half of spec §6's metric sink -- a driver
// that wants machine-readable output reads Metrics() instead; this is
// the ambient-logging path.
func (m *PassManager) DumpMetrics() {
	fields := make(logrus.Fields, len(m.metrics))
	for name, value := range m.Metrics() {
		fields[name] = value
	}
	m.log.WithFields(fields).Info("pass metrics")
}
