package tasks

import (
	"fmt"

	"github.com/kmorrow/daybell/internal/cli"
)

type HistoryCmd struct {
	Limit int `help:"Number of events to show." default:"20"`
}

// Run prints the most recent task events, newest first.
func (c *HistoryCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	events, err := ctx.Store.GetRecentEvents(c.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No task history recorded yet.")
		return nil
	}

	for _, ev := range events {
		line := fmt.Sprintf("%s  %-17s %s",
			ev.CreatedAt.Format("2006-01-02 15:04"), ev.EventType, ev.TaskTitle)
		if ev.Details != "" {
			line += fmt.Sprintf(" (%s)", ev.Details)
		}
		fmt.Println(line)
	}

	return nil
}
