package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kmorrow/daybell/internal/cli"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing database before initialization."`
}

const starterSchedule = `# daybell schedule
# Tasks are grouped by category; each task needs a title and a time.
settings:
  notification_duration: 60
  max_snooze_count: 3
  log_retention_days: 30

morning_tasks:
  - title: "Morning medication"
    time: "08:00"
    priority: 1
    duration: 5
    rrule: "FREQ=DAILY"

evening_tasks:
  - title: "Plan tomorrow"
    time: "21:30"
    priority: 3
    duration: 10
    rrule: "FREQ=DAILY"

weekly_tasks:
  - title: "Weekly review"
    time: "17:00"
    priority: 2
    duration: 30
    rrule: "FREQ=WEEKLY;BYDAY=SU"
`

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized daybell storage at: %s\n", ctx.Store.GetConfigPath())

	// Seed a starter schedule so `daybell run` works out of the box.
	if _, err := os.Stat(ctx.SchedulePath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(ctx.SchedulePath), 0700); err != nil {
			return fmt.Errorf("failed to create schedule directory: %w", err)
		}
		if err := os.WriteFile(ctx.SchedulePath, []byte(starterSchedule), 0600); err != nil {
			return fmt.Errorf("failed to write starter schedule: %w", err)
		}
		fmt.Printf("Wrote starter schedule to: %s\n", ctx.SchedulePath)
	}

	return nil
}
