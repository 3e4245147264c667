package main

import (
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/cli/backlogs"
	"github.com/kmorrow/daybell/internal/cli/daemon"
	"github.com/kmorrow/daybell/internal/cli/system"
	"github.com/kmorrow/daybell/internal/cli/tasks"
	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/errors"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/storage"
)

var CLI struct {
	Version  kong.VersionFlag
	Schedule string `help:"Schedule file path." type:"path" default:"~/.config/daybell/schedule.yaml"`
	DB       string `help:"Database file path." type:"path" default:"~/.config/daybell/daybell.db"`
	Strict   bool   `help:"Reject the whole schedule on the first malformed task instead of skipping it."`
	Debug    bool   `help:"Enable debug logging to stderr and the log file."`

	Init     system.InitCmd     `cmd:"" help:"Initialize daybell storage and a starter schedule."`
	Run      daemon.RunCmd      `cmd:"" help:"Run the reminder dispatcher in the foreground." default:"1"`
	Validate system.ValidateCmd `cmd:"" help:"Validate the schedule for conflicts."`
	Catchup  tasks.CatchupCmd   `cmd:"" help:"Preview today's catch-up bundles."`
	Task     struct {
		List     tasks.TaskListCmd `cmd:"" help:"List all scheduled tasks." default:"1"`
		Estimate tasks.EstimateCmd `cmd:"" help:"Show adaptive duration estimates."`
		History  tasks.HistoryCmd  `cmd:"" help:"Show recent task events."`
	} `cmd:"" help:"Inspect scheduled tasks."`
	Backlog struct {
		List    backlogs.BacklogListCmd    `cmd:"" help:"List backlog entries." default:"1"`
		Redeem  backlogs.BacklogRedeemCmd  `cmd:"" help:"Mark a backlog entry completed."`
		Remove  backlogs.BacklogRemoveCmd  `cmd:"" help:"Delete a backlog entry."`
		Cleanup backlogs.BacklogCleanupCmd `cmd:"" help:"Remove old completed entries."`
		Stats   backlogs.BacklogStatsCmd   `cmd:"" help:"Show backlog statistics."`
	} `cmd:"" help:"Manage the missed-task backlog."`
	Notify system.NotifyCmd `cmd:"" hidden:"" help:"Send a notification (used internally)."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Personal daily-task reminder planner"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	if err := setupLogger(CLI.Debug, CLI.DB); err != nil {
		errors.Fatal(err)
	}

	appCtx := &cli.Context{
		Store:        storage.NewSQLiteStore(CLI.DB),
		SchedulePath: CLI.Schedule,
		Strict:       CLI.Strict,
	}

	if err := ctx.Run(appCtx); err != nil {
		errors.Fatal(err)
	}
}

// setupLogger initializes the rotating file log next to the database,
// e.g. ~/.config/daybell/logs/daybell.log for the default layout.
func setupLogger(debug bool, dbPath string) error {
	return logger.Init(logger.Config{
		Debug:     debug,
		ConfigDir: filepath.Dir(dbPath),
	})
}
