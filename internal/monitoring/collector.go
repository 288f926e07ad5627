package monitoring

import (
	"sync"
	"time"

	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/resilience"
)

// Outcome is how a single price check ended.
type Outcome string

const (
	OutcomeReal      Outcome = "real"
	OutcomeSynthetic Outcome = "synthetic"
	OutcomeNoData    Outcome = "no_data"
	OutcomeFailed    Outcome = "failed"
)

// MetricsSnapshot holds a point-in-time view of check health.
type MetricsSnapshot struct {
	ChecksTotal     int     `json:"checks_total"`
	ChecksReal      int     `json:"checks_real"`
	ChecksSynthetic int     `json:"checks_synthetic"`
	ChecksNoData    int     `json:"checks_no_data"`
	ChecksFailed    int     `json:"checks_failed"`
	SyntheticRate   float64 `json:"synthetic_rate"`

	// Checks by flow (vin, quick).
	ByFlow map[model.CheckType]int `json:"by_flow"`

	// OpenCircuits names the listing breakers currently open.
	OpenCircuits []string `json:"open_circuits,omitempty"`

	WindowStart time.Time `json:"window_start"`
	CollectedAt time.Time `json:"collected_at"`
}

// Collector counts check outcomes in memory over a rolling window. It is
// safe for concurrent use.
type Collector struct {
	breakers []*resilience.CircuitBreaker
	now      func() time.Time

	mu     sync.Mutex
	start  time.Time
	counts map[Outcome]int
	flows  map[model.CheckType]int
}

// NewCollector creates a collector that also reports the state of the given
// breakers.
func NewCollector(breakers ...*resilience.CircuitBreaker) *Collector {
	c := &Collector{breakers: breakers, now: time.Now}
	c.resetLocked()
	return c
}

// Record counts one finished check.
func (c *Collector) Record(flow model.CheckType, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[o]++
	c.flows[flow]++
}

// Collect returns the counts since the last Collect and starts a new window.
func (c *Collector) Collect() *MetricsSnapshot {
	c.mu.Lock()
	snap := c.peekLocked()
	c.resetLocked()
	c.mu.Unlock()
	return snap
}

// Peek returns the current window without resetting it.
func (c *Collector) Peek() *MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peekLocked()
}

func (c *Collector) peekLocked() *MetricsSnapshot {
	snap := &MetricsSnapshot{
		ChecksReal:      c.counts[OutcomeReal],
		ChecksSynthetic: c.counts[OutcomeSynthetic],
		ChecksNoData:    c.counts[OutcomeNoData],
		ChecksFailed:    c.counts[OutcomeFailed],
		ByFlow:          make(map[model.CheckType]int, len(c.flows)),
		WindowStart:     c.start,
		CollectedAt:     c.now().UTC(),
	}
	for k, v := range c.flows {
		snap.ByFlow[k] = v
	}
	snap.ChecksTotal = snap.ChecksReal + snap.ChecksSynthetic + snap.ChecksNoData + snap.ChecksFailed
	if snap.ChecksTotal > 0 {
		snap.SyntheticRate = float64(snap.ChecksSynthetic) / float64(snap.ChecksTotal)
	}
	for _, b := range c.breakers {
		if b != nil && b.State() == resilience.CircuitOpen {
			snap.OpenCircuits = append(snap.OpenCircuits, b.Name())
		}
	}
	return snap
}

func (c *Collector) resetLocked() {
	c.start = c.now().UTC()
	c.counts = make(map[Outcome]int)
	c.flows = make(map[model.CheckType]int)
}
