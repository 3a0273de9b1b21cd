// Package health implements BotHealthMonitor: a per-bot-seller
// circuit breaker over a rolling window of dispatch outcomes, consulted by
// BotSellerDispatcher before every LLM-backed dispatch. The monitor is
// push-based — the dispatcher records each outcome inline — so there is no
// probing loop; just a fail-count-per-target map with a threshold-crossing
// transition.
package health

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultWindow and defaultCooldown back bot_health_window and
// bot_health_cooldown_s, default 5 and 120s.
const (
	defaultWindow   = 5
	defaultCooldown = 120 * time.Second
)

// Config holds circuit-breaker configuration.
type Config struct {
	Window   int
	Cooldown time.Duration
}

// Monitor is BotHealthMonitor.
type Monitor struct {
	mu       sync.Mutex
	cfg      Config
	now      func() time.Time
	outcomes map[uuid.UUID][]bool
	openedAt map[uuid.UUID]time.Time
}

// New constructs a Monitor.
func New(cfg Config) *Monitor {
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Monitor{
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		outcomes: make(map[uuid.UUID][]bool),
		openedAt: make(map[uuid.UUID]time.Time),
	}
}

// CircuitOpen reports whether botID's circuit is currently open. A circuit
// half-closes once bot_health_cooldown_s has elapsed since it opened,
// admitting a single probe dispatch to decide whether it stays closed.
func (m *Monitor) CircuitOpen(botID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	opened, ok := m.openedAt[botID]
	if !ok {
		return false
	}
	return m.now().Sub(opened) < m.cfg.Cooldown
}

// RecordOutcome records one dispatch outcome for botID. The circuit opens
// once the last bot_health_window outcomes are all failures, and closes
// immediately on the next success (including the half-open probe).
func (m *Monitor) RecordOutcome(botID uuid.UUID, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := append(m.outcomes[botID], success)
	if len(hist) > m.cfg.Window {
		hist = hist[len(hist)-m.cfg.Window:]
	}
	m.outcomes[botID] = hist

	if success {
		delete(m.openedAt, botID)
		return
	}
	if len(hist) == m.cfg.Window && allFalse(hist) {
		// A failed probe after the cooldown re-opens the circuit afresh.
		if opened, alreadyOpen := m.openedAt[botID]; !alreadyOpen || m.now().Sub(opened) >= m.cfg.Cooldown {
			m.openedAt[botID] = m.now()
		}
	}
}

func allFalse(hist []bool) bool {
	for _, ok := range hist {
		if ok {
			return false
		}
	}
	return true
}
