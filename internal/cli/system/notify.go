package system

import (
	"fmt"

	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/notifier"
)

type NotifyCmd struct {
	Text   string `arg:"" help:"Notification text."`
	DryRun bool   `help:"Print the notification to stdout instead of sending it."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	if c.DryRun {
		fmt.Println("[DryRun] " + c.Text)
		return nil
	}

	n := notifier.New()
	if err := n.Notify(c.Text); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
