// Package dispatch runs the scheduling loop: a priority queue of
// (firing instant, occurrence) pairs drained by one background
// goroutine that sleeps until the next fire time or a wake signal.
package dispatch

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/kmorrow/daybell/internal/adaptive"
	"github.com/kmorrow/daybell/internal/backlog"
	"github.com/kmorrow/daybell/internal/catchup"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/recurrence"
	"github.com/kmorrow/daybell/internal/storage"
)

// Sink receives due-events. Implementations render or forward the
// notification; errors are logged and never stop the dispatcher.
type Sink interface {
	OnDue(occ models.Occurrence, tmpl models.TaskTemplate) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(occ models.Occurrence, tmpl models.TaskTemplate) error

func (f SinkFunc) OnDue(occ models.Occurrence, tmpl models.TaskTemplate) error {
	return f(occ, tmpl)
}

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// Event log types emitted through the storage provider.
const (
	eventTaskShown     = "task_shown"
	eventTaskCompleted = "task_completed"
	eventTaskSkipped   = "task_skipped"
	eventTaskSnoozed   = "task_snoozed"
	eventTaskDeferred  = "task_deferred"
	eventCatchup       = "catchup_generated"
)

type Dispatcher struct {
	mu        sync.Mutex
	state     State
	sink      Sink
	estimator *adaptive.Estimator
	store     storage.Provider
	nowFn     func() time.Time
	maxSnooze int // 0 means unlimited

	templates   map[string]models.TaskTemplate
	queue       occurrenceHeap
	occurrences map[string]models.Occurrence // tracked occurrences by id
	retired     map[string]bool              // one-shot templates already scheduled

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func New(sink Sink) *Dispatcher {
	return &Dispatcher{
		sink:        sink,
		nowFn:       time.Now,
		templates:   make(map[string]models.TaskTemplate),
		occurrences: make(map[string]models.Occurrence),
		retired:     make(map[string]bool),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// SetEstimator wires the adaptive estimator that receives completion
// records from acknowledgments.
func (d *Dispatcher) SetEstimator(e *adaptive.Estimator) {
	d.estimator = e
}

// SetStore wires the append-only event log.
func (d *Dispatcher) SetStore(s storage.Provider) {
	d.store = s
}

// SetNowFunc overrides the clock for testing.
func (d *Dispatcher) SetNowFunc(fn func() time.Time) {
	d.nowFn = fn
}

// SetMaxSnooze caps how often a single occurrence can be snoozed.
// Zero or negative means unlimited.
func (d *Dispatcher) SetMaxSnooze(n int) {
	d.mu.Lock()
	d.maxSnooze = n
	d.mu.Unlock()
}

// Start loads the template set, queues each template's next occurrence
// and starts the background loop. Start on a non-idle dispatcher is an
// error.
func (d *Dispatcher) Start(templates []models.TaskTemplate) error {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already started")
	}
	d.state = StateRunning
	d.rebuildLocked(templates)
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run()

	logger.Info("Dispatcher started", "templates", len(templates))
	return nil
}

// Stop cooperatively shuts the loop down. In-flight due-event delivery
// completes; no occurrence fires afterward.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.state != StateRunning {
		d.mu.Unlock()
		return
	}
	d.state = StateStopped
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
	logger.Info("Dispatcher stopped")
}

// Reload atomically swaps the full template set and rebuilds the queue
// from scratch. Statuses of already-tracked occurrences survive the
// swap so acknowledged tasks do not fire again.
func (d *Dispatcher) Reload(templates []models.TaskTemplate) {
	d.mu.Lock()
	d.rebuildLocked(templates)
	d.mu.Unlock()
	d.signalWake()

	logger.Info("Dispatcher reloaded", "templates", len(templates))
}

// rebuildLocked replaces the template set and requeues pending work.
// Callers must hold the mutex.
func (d *Dispatcher) rebuildLocked(templates []models.TaskTemplate) {
	d.templates = make(map[string]models.TaskTemplate, len(templates))
	d.queue = d.queue[:0]
	now := d.nowFn()

	for _, tmpl := range templates {
		d.templates[tmpl.ID] = tmpl

		if !tmpl.Recurring() && d.retired[tmpl.ID] {
			continue
		}

		next := recurrence.NextWithDailyFallback(tmpl, now)
		occ := models.NewOccurrence(tmpl, next)

		if existing, ok := d.occurrences[occ.ID]; ok && existing.Status != models.StatusPending {
			// Already fired or resolved in this process; keep its record
			// and do not queue a duplicate.
			continue
		}

		d.occurrences[occ.ID] = occ
		heap.Push(&d.queue, occ)
	}
	heap.Init(&d.queue)
}

func (d *Dispatcher) signalWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if d.state != StateRunning {
			d.mu.Unlock()
			return
		}

		now := d.nowFn()
		var timerC <-chan time.Time
		var timer *time.Timer

		if d.queue.Len() > 0 {
			next := d.queue[0]
			if !next.At.After(now) {
				d.fireLocked()
				d.mu.Unlock()
				continue
			}
			timer = time.NewTimer(next.At.Sub(now))
			timerC = timer.C
		}
		d.mu.Unlock()

		select {
		case <-timerC:
		case <-d.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-d.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// fireLocked pops the head occurrence, marks it fired, delivers the
// due-event and requeues the template's next occurrence if it recurs.
// Callers must hold the mutex; delivery happens without it so ack calls
// from the sink do not deadlock.
func (d *Dispatcher) fireLocked() {
	occ := heap.Pop(&d.queue).(models.Occurrence)

	tracked, ok := d.occurrences[occ.ID]
	if !ok || tracked.Status != models.StatusPending || !tracked.At.Equal(occ.At) {
		// Stale heap entry (snoozed or acknowledged while queued).
		return
	}

	tracked.Status = models.StatusFired
	d.occurrences[occ.ID] = tracked

	tmpl, hasTemplate := d.templates[occ.TemplateID]
	if hasTemplate && tmpl.Recurring() {
		next := recurrence.NextWithDailyFallback(tmpl, occ.At)
		nextOcc := models.NewOccurrence(tmpl, next)
		if _, exists := d.occurrences[nextOcc.ID]; !exists {
			d.occurrences[nextOcc.ID] = nextOcc
			heap.Push(&d.queue, nextOcc)
		}
	} else if hasTemplate {
		d.retired[occ.TemplateID] = true
	}

	sink := d.sink
	fired := tracked

	// Deliver outside the lock.
	d.mu.Unlock()
	d.logEvent(eventTaskShown, fired.TemplateID, fired.Title, "")
	if sink != nil {
		if err := sink.OnDue(fired, tmpl); err != nil {
			// The occurrence stays fired; catch-up reconciliation is the
			// retry mechanism.
			logger.Error("Due-event delivery failed", "occurrence", fired.ID, "error", err)
		}
	}
	d.mu.Lock()
}

// Complete acknowledges a fired or pending occurrence as done. The
// elapsed time since firing feeds the adaptive estimator as the actual
// duration.
func (d *Dispatcher) Complete(occurrenceID string) error {
	return d.acknowledge(occurrenceID, models.StatusCompleted)
}

// Skip acknowledges an occurrence without doing it.
func (d *Dispatcher) Skip(occurrenceID string) error {
	return d.acknowledge(occurrenceID, models.StatusSkipped)
}

func (d *Dispatcher) acknowledge(occurrenceID string, status models.OccurrenceStatus) error {
	d.mu.Lock()
	occ, ok := d.occurrences[occurrenceID]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("occurrence %s: %w", occurrenceID, storage.ErrNotFound)
	}

	now := d.nowFn()
	occ.Status = status
	d.occurrences[occurrenceID] = occ
	estimator := d.estimator
	d.mu.Unlock()

	completed := status == models.StatusCompleted
	actualMin := 0
	if completed && now.After(occ.At) {
		actualMin = int(now.Sub(occ.At).Minutes())
	}

	if estimator != nil {
		estimator.RecordCompletion(occ.TemplateID, occ.DurationMin, actualMin, completed)
	}

	eventType := eventTaskSkipped
	if completed {
		eventType = eventTaskCompleted
	}
	d.logEvent(eventType, occ.TemplateID, occ.Title, fmt.Sprintf("actual_min=%d", actualMin))

	return nil
}

// CompleteAll applies Complete to every listed occurrence, e.g. a
// catch-up bundle's bulk resolution. Unknown ids are skipped.
func (d *Dispatcher) CompleteAll(occurrenceIDs []string) {
	for _, id := range occurrenceIDs {
		if err := d.Complete(id); err != nil {
			logger.Warn("Bulk complete skipped unknown occurrence", "occurrence", id)
		}
	}
}

// SkipAll applies Skip to every listed occurrence.
func (d *Dispatcher) SkipAll(occurrenceIDs []string) {
	for _, id := range occurrenceIDs {
		if err := d.Skip(id); err != nil {
			logger.Warn("Bulk skip skipped unknown occurrence", "occurrence", id)
		}
	}
}

// Snooze re-queues an occurrence minutes from now without touching the
// template's recurrence.
func (d *Dispatcher) Snooze(occurrenceID string, minutes int) error {
	d.mu.Lock()
	occ, ok := d.occurrences[occurrenceID]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("occurrence %s: %w", occurrenceID, storage.ErrNotFound)
	}
	if d.maxSnooze > 0 && occ.SnoozeCount >= d.maxSnooze {
		d.mu.Unlock()
		return fmt.Errorf("occurrence %s already snoozed %d times (max %d)",
			occurrenceID, occ.SnoozeCount, d.maxSnooze)
	}

	occ.At = d.nowFn().Add(time.Duration(minutes) * time.Minute)
	occ.Status = models.StatusPending
	occ.SnoozeCount++
	d.occurrences[occurrenceID] = occ
	heap.Push(&d.queue, occ)
	d.mu.Unlock()
	d.signalWake()

	d.logEvent(eventTaskSnoozed, occ.TemplateID, occ.Title, fmt.Sprintf("minutes=%d", minutes))
	return nil
}

// FireNow forces a pending occurrence due immediately. Testing and
// manual-trigger hook.
func (d *Dispatcher) FireNow(occurrenceID string) error {
	d.mu.Lock()
	occ, ok := d.occurrences[occurrenceID]
	if !ok || occ.Status != models.StatusPending {
		d.mu.Unlock()
		return fmt.Errorf("occurrence %s: %w", occurrenceID, storage.ErrNotFound)
	}
	occ.At = d.nowFn()
	d.occurrences[occurrenceID] = occ
	heap.Push(&d.queue, occ)
	d.mu.Unlock()
	d.signalWake()
	return nil
}

// Snapshot returns an immutable copy of every tracked occurrence.
// Safe to call from any goroutine; readers never hold a reference into
// live dispatcher state.
func (d *Dispatcher) Snapshot() []models.Occurrence {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.Occurrence, 0, len(d.occurrences))
	for _, occ := range d.occurrences {
		out = append(out, occ)
	}
	return out
}

// ConfirmMissed transitions unacknowledged occurrences whose time block
// has ended to the missed status, returning the confirmed ids.
func (d *Dispatcher) ConfirmMissed(c *catchup.Consolidator) []string {
	d.mu.Lock()
	now := d.nowFn()
	var confirmed []string
	for id, occ := range d.occurrences {
		if occ.Status != models.StatusFired && occ.Status != models.StatusPending {
			continue
		}
		if !occ.At.Before(now) || !c.BlockEndPassed(now, occ) {
			continue
		}
		occ.Status = models.StatusMissed
		d.occurrences[id] = occ
		confirmed = append(confirmed, id)
	}
	d.mu.Unlock()

	if len(confirmed) > 0 {
		d.logEvent(eventCatchup, "", "", fmt.Sprintf("missed=%d", len(confirmed)))
	}
	return confirmed
}

// Rollover hands occurrences from previous days that were never
// resolved to the backlog ledger and drops them from tracking.
func (d *Dispatcher) Rollover(c *catchup.Consolidator, ledger *backlog.Ledger) (int, error) {
	snapshot := d.Snapshot()
	now := d.nowFn()

	entryIDs, err := c.DeferExpired(now, snapshot, ledger)
	if err != nil {
		return len(entryIDs), err
	}

	d.mu.Lock()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for id, occ := range d.occurrences {
		if occ.At.Before(cutoff) {
			delete(d.occurrences, id)
		}
	}
	d.mu.Unlock()

	for range entryIDs {
		d.logEvent(eventTaskDeferred, "", "", "day rollover")
	}
	return len(entryIDs), nil
}

func (d *Dispatcher) logEvent(eventType, templateID, title, details string) {
	if d.store == nil {
		return
	}
	if err := d.store.AppendEvent(eventType, templateID, title, details); err != nil {
		logger.Warn("Failed to append event", "type", eventType, "error", err)
	}
}
