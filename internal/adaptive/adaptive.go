// Package adaptive re-estimates task durations from completion history.
// It keeps a bounded sample ring and biases each template's baseline by
// its recent success rate and priority.
package adaptive

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/storage"
)

type Estimator struct {
	mu      sync.Mutex
	history []models.DurationSample // oldest first, capped ring
	store   storage.Provider       // optional persistence, may be nil
	nowFn   func() time.Time
}

func New() *Estimator {
	return &Estimator{nowFn: time.Now}
}

// NewWithStore returns an estimator that persists samples through the
// storage provider and seeds its ring from previously stored history.
func NewWithStore(store storage.Provider) (*Estimator, error) {
	samples, err := store.GetDurationSamples(constants.SampleHistoryCap)
	if err != nil {
		return nil, fmt.Errorf("failed to load duration samples: %w", err)
	}
	return &Estimator{
		history: samples,
		store:   store,
		nowFn:   time.Now,
	}, nil
}

// SetNowFunc overrides the clock for testing.
func (e *Estimator) SetNowFunc(fn func() time.Time) {
	e.nowFn = fn
}

// RecordCompletion appends a completion history sample, evicting the
// oldest once the ring holds 100 records. The cap is global across all
// templates, so one busy task can crowd out another's history; this
// matches how the sample ring has always behaved.
func (e *Estimator) RecordCompletion(templateID string, scheduledMin, actualMin int, completed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample := models.DurationSample{
		TemplateID:   templateID,
		ScheduledMin: scheduledMin,
		ActualMin:    actualMin,
		Completed:    completed,
		Timestamp:    e.nowFn(),
	}

	e.history = append(e.history, sample)
	if len(e.history) > constants.SampleHistoryCap {
		e.history = e.history[len(e.history)-constants.SampleHistoryCap:]
	}

	if e.store != nil {
		if err := e.store.AddDurationSample(sample); err != nil {
			logger.Warn("Failed to persist duration sample", "template", templateID, "error", err)
		} else if _, err := e.store.PruneDurationSamples(constants.SampleHistoryCap); err != nil {
			logger.Warn("Failed to prune duration samples", "error", err)
		}
	}

	logger.Debug("Recorded completion sample", "template", templateID,
		"completed", completed, "actual_min", actualMin)
}

// EstimateDuration computes the adjusted duration estimate for a
// template, never returning less than the 5-minute floor.
func (e *Estimator) EstimateDuration(tmpl models.TaskTemplate) int {
	return e.Adjustment(tmpl).AdjustedMin
}

// Adjustment recomputes the full time adjustment record for a template
// from its recent samples. With no history the baseline is returned
// unchanged.
func (e *Estimator) Adjustment(tmpl models.TaskTemplate) models.TimeAdjustment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adjustment(tmpl.ID, tmpl.DurationMin, tmpl.Priority)
}

func (e *Estimator) adjustment(templateID string, baselineMin, priority int) models.TimeAdjustment {
	adj := models.TimeAdjustment{
		TemplateID:  templateID,
		BaselineMin: baselineMin,
		AdjustedMin: baselineMin,
		Factor:      1.0,
	}

	window := e.recentSamples(templateID, constants.SampleWindowSize)
	if len(window) == 0 {
		return adj
	}

	completedCount := 0
	actualSum := 0
	for _, s := range window {
		if s.Completed {
			completedCount++
		}
		actualSum += s.ActualMin
	}

	adj.SuccessRate = float64(completedCount) / float64(len(window))
	adj.AvgActualMin = float64(actualSum) / float64(len(window))

	// Success-rate and priority adjustments compose multiplicatively.
	if adj.SuccessRate < 0.5 {
		adj.Factor *= constants.LowSuccessFactor
	} else if adj.SuccessRate > 0.8 {
		adj.Factor *= constants.HighSuccessFactor
	}
	if priority <= 1 {
		adj.Factor *= constants.HighPriorityFactor
	} else if priority >= 4 {
		adj.Factor *= constants.LowPriorityFactor
	}

	base := float64(baselineMin)
	if adj.AvgActualMin > 0 {
		base = adj.AvgActualMin
	}

	adjusted := int(math.Round(base * adj.Factor))
	if adjusted < constants.MinTaskDurationMin {
		adjusted = constants.MinTaskDurationMin
	}
	adj.AdjustedMin = adjusted

	return adj
}

// recentSamples returns up to the last limit samples for a template,
// oldest first. Callers must hold the mutex.
func (e *Estimator) recentSamples(templateID string, limit int) []models.DurationSample {
	var window []models.DurationSample
	for i := len(e.history) - 1; i >= 0 && len(window) < limit; i-- {
		if e.history[i].TemplateID == templateID {
			window = append(window, e.history[i])
		}
	}
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window
}

// RedistributeBudget assigns each occurrence its adaptive estimate,
// shrinking the lower-priority tail proportionally when the estimates
// exceed the available budget. The higher-priority first half keeps its
// estimates untouched. The proportional shrink can drive a tail task
// below the 5-minute floor, down to zero; callers that care must clamp.
func (e *Estimator) RedistributeBudget(occurrences []models.Occurrence, totalAvailableMin int) []models.Occurrence {
	if len(occurrences) == 0 {
		return occurrences
	}

	out := make([]models.Occurrence, len(occurrences))
	copy(out, occurrences)

	e.mu.Lock()
	total := 0
	for i := range out {
		adj := e.adjustment(out[i].TemplateID, out[i].DurationMin, out[i].Priority)
		out[i].FinalDurationMin = adj.AdjustedMin
		total += adj.AdjustedMin
	}
	e.mu.Unlock()

	if total <= totalAvailableMin {
		return out
	}

	// Lower priority number schedules first and keeps its estimate.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].TemplateID < out[j].TemplateID
	})

	keep := len(out) / 2
	remaining := totalAvailableMin
	tailSum := 0
	for i := keep; i < len(out); i++ {
		tailSum += out[i].FinalDurationMin
	}
	for i := 0; i < keep; i++ {
		remaining -= out[i].FinalDurationMin
	}

	if tailSum <= 0 {
		return out
	}
	if remaining < 0 {
		remaining = 0
	}

	factor := float64(remaining) / float64(tailSum)
	for i := keep; i < len(out); i++ {
		out[i].FinalDurationMin = int(float64(out[i].FinalDurationMin) * factor)
	}

	return out
}

// Insights summarizes adaptive behavior: templates that fail more than
// 40% of the time and the average adjustment factor across templates
// with history.
func (e *Estimator) Insights() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 {
		return []string{"No task history available for insights."}
	}

	type tally struct {
		completed int
		total     int
	}
	byTemplate := make(map[string]*tally)
	var order []string
	for _, s := range e.history {
		t, ok := byTemplate[s.TemplateID]
		if !ok {
			t = &tally{}
			byTemplate[s.TemplateID] = t
			order = append(order, s.TemplateID)
		}
		t.total++
		if s.Completed {
			t.completed++
		}
	}

	var insights []string

	type challenged struct {
		id   string
		rate float64
	}
	var challenging []challenged
	for _, id := range order {
		t := byTemplate[id]
		rate := float64(t.completed) / float64(t.total)
		if rate < 0.6 {
			challenging = append(challenging, challenged{id: id, rate: rate})
		}
	}
	if len(challenging) > 0 {
		sort.Slice(challenging, func(i, j int) bool {
			if challenging[i].rate != challenging[j].rate {
				return challenging[i].rate < challenging[j].rate
			}
			return challenging[i].id < challenging[j].id
		})
		names := ""
		for i, c := range challenging {
			if i == 3 {
				break
			}
			if i > 0 {
				names += ", "
			}
			names += c.id
		}
		insights = append(insights, fmt.Sprintf("Most challenging tasks: %s", names))
	}

	factorSum := 0.0
	factorCount := 0
	for _, id := range order {
		adj := e.adjustment(id, constants.DefaultDurationMin, constants.DefaultPriority)
		factorSum += adj.Factor
		factorCount++
	}
	if factorCount > 0 {
		insights = append(insights, fmt.Sprintf("Average time adjustment factor: %.2f", factorSum/float64(factorCount)))
	}

	return insights
}
