package constants

import "time"

const (
	AppName           = "daybell"
	Version           = "v0.3.0"
	DefaultConfigPath = "~/.config/daybell/daybell.db"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Scheduling constants
	MinPriority        = 1
	MaxPriority        = 5
	DefaultPriority    = 3
	DefaultDurationMin = 15
	DefaultSnoozeMin   = 15
	MinTaskDurationMin = 5

	// Catch-up constants
	CatchUpMinutesPerTask = 15
	CatchUpPriority       = 1

	// Adaptive estimator constants
	SampleHistoryCap   = 100
	SampleWindowSize   = 20
	LowSuccessFactor   = 1.3
	HighSuccessFactor  = 0.9
	HighPriorityFactor = 1.2
	LowPriorityFactor  = 0.8

	// Backlog constants
	BacklogRetentionDays = 30

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "daybell-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.kmorrow.daybell"
)
