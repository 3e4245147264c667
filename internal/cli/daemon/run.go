// Package daemon runs the foreground dispatch loop: it expands the
// schedule, fires due-task notifications, confirms missed tasks once
// their time block closes, and rolls unresolved work into the backlog
// at the day boundary.
package daemon

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kmorrow/daybell/internal/adaptive"
	"github.com/kmorrow/daybell/internal/backlog"
	"github.com/kmorrow/daybell/internal/catchup"
	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/config"
	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/dispatch"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/notifier"
	"github.com/kmorrow/daybell/internal/recurrence"
	"github.com/kmorrow/daybell/internal/storage"
	"github.com/kmorrow/daybell/internal/timeblock"
	"github.com/kmorrow/daybell/internal/utils"
)

type RunCmd struct {
	Once          bool          `help:"Print today's expanded schedule and exit without dispatching."`
	Tray          bool          `help:"Forward notifications to the daybell-tray companion."`
	CheckInterval time.Duration `help:"How often missed tasks are confirmed and consolidated." default:"1m"`
}

func (c *RunCmd) Run(ctx *cli.Context) error {
	sched, err := ctx.LoadSchedule()
	if err != nil {
		return err
	}
	if len(sched.Templates) == 0 {
		return fmt.Errorf("schedule %s contains no tasks", ctx.SchedulePath)
	}

	if c.Once {
		return c.printToday(ctx, sched.Templates)
	}

	if err := ctx.Store.Load(); err != nil {
		return err
	}

	estimator, err := adaptive.NewWithStore(ctx.Store)
	if err != nil {
		return err
	}
	ledger := backlog.New(ctx.Store)
	consolidator := catchup.New(timeblock.New())

	var sink dispatch.Sink = dispatch.SinkFunc(consoleSink)
	if c.Tray {
		tray := notifier.New()
		tray.SetNotificationDuration(sched.Settings.NotificationDuration)
		sink = trayAndConsoleSink{tray: tray}
	}

	d := dispatch.New(sink)
	d.SetEstimator(estimator)
	d.SetStore(ctx.Store)
	d.SetMaxSnooze(sched.Settings.MaxSnoozeCount)

	if err := d.Start(sched.Templates); err != nil {
		return err
	}
	defer d.Stop()

	// Pick up schedule edits without a restart.
	reloadCh := make(chan *config.Schedule, 1)
	watcher, err := config.WatchFile(ctx.SchedulePath, ctx.Strict, func(next *config.Schedule) {
		select {
		case reloadCh <- next:
		default:
		}
	})
	if err != nil {
		logger.Warn("Schedule watcher unavailable, edit auto-reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	fmt.Printf("daybell running with %d tasks. Commands: done <id>, skip <id>, snooze <id> [min], list, catchup, quit\n",
		len(sched.Templates))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lineCh := make(chan string)
	go readLines(lineCh)

	ticker := time.NewTicker(c.CheckInterval)
	defer ticker.Stop()

	lastDay := utils.StartOfDay(ctx.Now(sched))
	for {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down.")
			return nil

		case line, ok := <-lineCh:
			if !ok {
				return nil
			}
			if quit := c.handleCommand(d, consolidator, line); quit {
				return nil
			}

		case next := <-reloadCh:
			sched = next
			d.SetMaxSnooze(sched.Settings.MaxSnoozeCount)
			d.Reload(sched.Templates)
			fmt.Printf("Schedule reloaded: %d tasks.\n", len(sched.Templates))

		case <-ticker.C:
			now := ctx.Now(sched)

			day := utils.StartOfDay(now)
			if day.After(lastDay) {
				deferred, err := d.Rollover(consolidator, ledger)
				if err != nil {
					logger.Warn("Rollover failed", "error", err)
				} else if deferred > 0 {
					fmt.Printf("Rolled %d unresolved task(s) into the backlog.\n", deferred)
				}
				if _, err := pruneEvents(ctx.Store, now, sched.Settings.LogRetentionDays); err != nil {
					logger.Warn("Event log cleanup failed", "error", err)
				}
				d.Reload(sched.Templates)
				lastDay = day
				continue
			}

			if missed := d.ConfirmMissed(consolidator); len(missed) > 0 {
				bundles := consolidator.Reconcile(now, d.Snapshot())
				for _, bundle := range bundles {
					fmt.Printf("⏰ %s - %dm (%d tasks)\n",
						bundle.Title, bundle.DurationMin, len(bundle.MissedIDs))
				}
			}
		}
	}
}

func (c *RunCmd) handleCommand(d *dispatch.Dispatcher, consolidator *catchup.Consolidator, line string) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true

	case "list":
		occurrences := d.Snapshot()
		if len(occurrences) == 0 {
			fmt.Println("Nothing scheduled.")
			return false
		}
		for _, occ := range occurrences {
			fmt.Printf("  [%s] %s %s - %dm (id %s)\n",
				occ.Status, occ.At.Format("15:04"), occ.Title, occ.DurationMin, occ.ID)
		}

	case "catchup":
		bundles := consolidator.Reconcile(time.Now(), d.Snapshot())
		if len(bundles) == 0 {
			fmt.Println("Nothing to catch up on.")
			return false
		}
		for _, bundle := range bundles {
			fmt.Printf("  %s - %dm (%d tasks)\n", bundle.Title, bundle.DurationMin, len(bundle.MissedIDs))
		}

	case "done":
		if len(fields) < 2 {
			fmt.Println("Usage: done <occurrence-id>")
			return false
		}
		if err := d.Complete(fields[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

	case "skip":
		if len(fields) < 2 {
			fmt.Println("Usage: skip <occurrence-id>")
			return false
		}
		if err := d.Skip(fields[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

	case "snooze":
		if len(fields) < 2 {
			fmt.Println("Usage: snooze <occurrence-id> [minutes]")
			return false
		}
		minutes := constants.DefaultSnoozeMin
		if len(fields) >= 3 {
			if _, err := fmt.Sscanf(fields[2], "%d", &minutes); err != nil || minutes <= 0 {
				fmt.Println("Snooze minutes must be a positive number.")
				return false
			}
		}
		if err := d.Snooze(fields[1], minutes); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", fields[0])
	}

	return false
}

// printToday renders today's plan as one list: catch-up bundles for
// anything already in the past, then the remaining occurrences in time
// order.
func (c *RunCmd) printToday(ctx *cli.Context, templates []models.TaskTemplate) error {
	now := ctx.Now(nil)
	dayStart := utils.StartOfDay(now)

	var today []models.Occurrence
	for _, tmpl := range templates {
		at := recurrence.NextWithDailyFallback(tmpl, dayStart)
		if !utils.SameDay(at, now) {
			continue
		}
		today = append(today, models.NewOccurrence(tmpl, at))
	}

	if len(today) == 0 {
		fmt.Println("Nothing scheduled for today.")
		return nil
	}

	var items []models.ScheduledItem
	for _, bundle := range catchup.New(timeblock.New()).Reconcile(now, today) {
		items = append(items, models.CatchUpItem(bundle))
	}
	for _, occ := range today {
		if !occ.At.Before(now) {
			items = append(items, models.RegularItem(occ))
		}
	}

	fmt.Printf("Today's schedule (%s):\n", now.Format("2006-01-02"))
	for _, item := range items {
		switch item.Kind {
		case models.ItemCatchUp:
			fmt.Printf("  now   %s - %dm (%d tasks)\n",
				item.Bundle.Title, item.Bundle.DurationMin, len(item.Bundle.MissedIDs))
		case models.ItemRegular:
			fmt.Printf("  %s %s - %dm (priority %d)\n",
				item.Occurrence.At.Format("15:04"), item.Occurrence.Title,
				item.Occurrence.DurationMin, item.Occurrence.Priority)
		}
	}
	return nil
}

func consoleSink(occ models.Occurrence, tmpl models.TaskTemplate) error {
	bell := "🔔"
	if occ.Priority <= 2 {
		bell = "‼️"
	}
	fmt.Printf("%s %s %s - %dm (done %s / skip / snooze)\n",
		bell, occ.At.Format("15:04"), occ.Title, occ.DurationMin, occ.ID)
	return nil
}

// trayAndConsoleSink mirrors every due-event to stdout and forwards it
// to the tray. Tray delivery failures surface as sink errors, which the
// dispatcher logs without stopping.
type trayAndConsoleSink struct {
	tray *notifier.Notifier
}

func (s trayAndConsoleSink) OnDue(occ models.Occurrence, tmpl models.TaskTemplate) error {
	_ = consoleSink(occ, tmpl)
	return s.tray.OnDue(occ, tmpl)
}

// pruneEvents drops event log rows older than the retention window.
// Zero or negative retention disables cleanup.
func pruneEvents(store storage.Provider, now time.Time, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	return store.CleanupEventsBefore(now.AddDate(0, 0, -retentionDays))
}

func readLines(out chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}
