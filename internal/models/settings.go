package models

// Settings are the application-level knobs loaded from the schedule
// file's settings block. Zero values are replaced with defaults during
// config validation.
type Settings struct {
	Timezone             string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	NotificationDuration int    `yaml:"notification_duration,omitempty" json:"notification_duration"` // seconds
	MaxSnoozeCount       int    `yaml:"max_snooze_count,omitempty" json:"max_snooze_count"`
	LogRetentionDays     int    `yaml:"log_retention_days,omitempty" json:"log_retention_days"`
}
