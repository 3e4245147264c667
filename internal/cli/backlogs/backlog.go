// Package backlogs holds the CLI commands for inspecting and resolving
// the missed-task backlog.
package backlogs

import (
	"errors"
	"fmt"

	"github.com/kmorrow/daybell/internal/backlog"
	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/models"
)

func openLedger(ctx *cli.Context) (*backlog.Ledger, error) {
	if err := ctx.Store.Load(); err != nil {
		return nil, err
	}
	return backlog.New(ctx.Store), nil
}

type BacklogListCmd struct {
	All        bool `help:"Include completed entries."`
	ByPriority bool `help:"Order by priority instead of age." name:"by-priority"`
	Oldest     int  `help:"Show only the N oldest entries."`
	Urgent     bool `help:"Show only high-priority entries (priority 1-2)."`
}

func (c *BacklogListCmd) Run(ctx *cli.Context) error {
	ledger, err := openLedger(ctx)
	if err != nil {
		return err
	}

	var entries []models.BacklogEntry
	switch {
	case c.Urgent:
		entries, err = ledger.HighPriority(c.Oldest)
	case c.Oldest > 0:
		entries, err = ledger.Oldest(c.Oldest)
	case c.ByPriority:
		entries, err = ledger.ListByPriority(c.All)
	default:
		entries, err = ledger.List(c.All)
	}
	if err != nil {
		return fmt.Errorf("failed to list backlog: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Backlog is empty.")
		return nil
	}

	fmt.Println("Backlog:")
	for _, entry := range entries {
		status := " "
		if entry.Completed {
			status = "x"
		}
		fmt.Printf("  [%s] %s - %s (priority %d, missed %s)\n",
			status, entry.ID[:8], entry.Title, entry.Priority, entry.OriginalDate)
		if entry.Reason != "" {
			fmt.Printf("      %s\n", entry.Reason)
		}
	}

	return nil
}

type BacklogRedeemCmd struct {
	ID string `arg:"" help:"Backlog entry ID (full or unique prefix)."`
}

func (c *BacklogRedeemCmd) Run(ctx *cli.Context) error {
	ledger, err := openLedger(ctx)
	if err != nil {
		return err
	}

	id, err := resolveEntryID(ledger, c.ID)
	if err != nil {
		return err
	}
	if err := ledger.Redeem(id); err != nil {
		if errors.Is(err, backlog.ErrNotFound) {
			return fmt.Errorf("backlog entry not found: %s", c.ID)
		}
		return err
	}
	fmt.Printf("Redeemed backlog entry: %s\n", id)
	return nil
}

type BacklogRemoveCmd struct {
	ID string `arg:"" help:"Backlog entry ID (full or unique prefix)."`
}

func (c *BacklogRemoveCmd) Run(ctx *cli.Context) error {
	ledger, err := openLedger(ctx)
	if err != nil {
		return err
	}

	id, err := resolveEntryID(ledger, c.ID)
	if err != nil {
		return err
	}
	if err := ledger.Remove(id); err != nil {
		if errors.Is(err, backlog.ErrNotFound) {
			return fmt.Errorf("backlog entry not found: %s", c.ID)
		}
		return err
	}
	fmt.Printf("Removed backlog entry: %s\n", id)
	return nil
}

type BacklogCleanupCmd struct {
	Days int `help:"Remove completed entries older than this many days." default:"30"`
}

func (c *BacklogCleanupCmd) Run(ctx *cli.Context) error {
	ledger, err := openLedger(ctx)
	if err != nil {
		return err
	}

	days := c.Days
	if days <= 0 {
		days = constants.BacklogRetentionDays
	}

	removed, err := ledger.CleanupOlderThan(days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Removed %d completed entries older than %d days.\n", removed, days)
	return nil
}

type BacklogStatsCmd struct{}

func (c *BacklogStatsCmd) Run(ctx *cli.Context) error {
	ledger, err := openLedger(ctx)
	if err != nil {
		return err
	}

	stats, err := ledger.Stats()
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	fmt.Println("Backlog stats:")
	fmt.Printf("  Total: %d  Pending: %d  Completed: %d (%.0f%% completion)\n",
		stats.Total, stats.Pending, stats.Completed, stats.CompletionRate)
	fmt.Printf("  Age of pending: %d recent, %d week-old, %d month-old, %d older\n",
		stats.AgeRecent, stats.AgeWeekOld, stats.AgeMonthOld, stats.AgeOlder)
	for priority := 1; priority <= 5; priority++ {
		if count := stats.ByPriority[priority]; count > 0 {
			fmt.Printf("  Priority %d: %d\n", priority, count)
		}
	}
	return nil
}

// resolveEntryID expands an ID prefix to a full entry ID. Ambiguous
// prefixes are an error rather than a guess.
func resolveEntryID(ledger *backlog.Ledger, prefix string) (string, error) {
	entries, err := ledger.List(true)
	if err != nil {
		return "", err
	}

	var match string
	for _, entry := range entries {
		if entry.ID == prefix {
			return entry.ID, nil
		}
		if len(prefix) >= 4 && len(entry.ID) > len(prefix) && entry.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("ambiguous backlog ID prefix: %s", prefix)
			}
			match = entry.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("backlog entry not found: %s", prefix)
	}
	return match, nil
}
