package models

import "time"

// DurationSample is one append-only completion history record.
type DurationSample struct {
	TemplateID   string    `json:"template_id"`
	ScheduledMin int       `json:"scheduled_min"`
	ActualMin    int       `json:"actual_min"`
	Completed    bool      `json:"completed"`
	Timestamp    time.Time `json:"timestamp"`
}

// TimeAdjustment describes how a template's baseline duration was
// adjusted from its recent completion history. Recomputed on demand,
// never cached across estimator calls.
type TimeAdjustment struct {
	TemplateID   string  `json:"template_id"`
	BaselineMin  int     `json:"baseline_min"`
	AdjustedMin  int     `json:"adjusted_min"`
	Factor       float64 `json:"factor"`
	SuccessRate  float64 `json:"success_rate"`
	AvgActualMin float64 `json:"avg_actual_min"`
}
