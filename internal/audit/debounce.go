// Package audit runs compliance audits reactively: edits are debounced so a
// single audit is issued once the text stops changing.
package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/metrics"
	"github.com/jonathan/clinic-studio/internal/types"
)

// DefaultQuietPeriod is how long the text must stay unchanged before an audit runs.
const DefaultQuietPeriod = time.Second

// Auditor classifies text. generation.Generator implements it.
type Auditor interface {
	Audit(ctx context.Context, text string) (*types.ComplianceAuditResult, error)
}

// State is what a reader sees. While a new audit is pending the previous
// Result stays in place.
type State struct {
	Result  *types.ComplianceAuditResult `json:"result,omitempty"`
	Pending bool                         `json:"pending"`
	Err     error                        `json:"-"`
	Text    string                       `json:"text"`
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(db *Debouncer) { db.quiet = d }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(db *Debouncer) { db.log = l }
}

// OnResult registers a callback invoked after every audit that is still current.
func OnResult(fn func(State)) Option {
	return func(db *Debouncer) { db.onResult = fn }
}

// Debouncer coalesces Trigger calls into one audit of the last text.
type Debouncer struct {
	auditor  Auditor
	quiet    time.Duration
	log      *logger.Logger
	onResult func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	state  State
	closed bool
}

// NewDebouncer wraps auditor.
func NewDebouncer(auditor Auditor, opts ...Option) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Debouncer{
		auditor: auditor,
		quiet:   DefaultQuietPeriod,
		log:     logger.Nop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger records an edit. The quiet period restarts; when it elapses one
// audit runs with the text of the latest Trigger. Blank text cancels any
// pending audit and calls nothing.
func (d *Debouncer) Trigger(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.state.Text = text
	if strings.TrimSpace(text) == "" {
		d.state.Pending = false
		return
	}

	d.state.Pending = true
	seq := d.seq
	d.timer = time.AfterFunc(d.quiet, func() { d.run(seq, text) })
}

func (d *Debouncer) run(seq uint64, text string) {
	d.mu.Lock()
	if seq != d.seq || d.closed {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	result, err := d.auditor.Audit(d.ctx, text)

	d.mu.Lock()
	if seq != d.seq || d.closed {
		d.mu.Unlock()
		d.log.Debug("Discarding stale audit", "seq", seq)
		return
	}
	d.state.Pending = false
	d.state.Err = err
	if err == nil {
		d.state.Result = result
	}
	snapshot := d.state
	cb := d.onResult
	d.mu.Unlock()

	if err != nil {
		d.log.Warn("Compliance audit failed", "error", err)
	} else if result != nil {
		metrics.AuditTotal.WithLabelValues(string(result.RiskLevel)).Inc()
	}
	if cb != nil {
		cb(snapshot)
	}
}

// State returns the current audit state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close stops the timer and abandons any in-flight audit.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.cancel()
}
