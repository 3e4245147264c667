package system

import (
	"fmt"

	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/timeblock"
	"github.com/kmorrow/daybell/internal/validation"
)

type ValidateCmd struct {
	Quiet bool `help:"Only set the exit code; print nothing unless conflicts exist."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	sched, err := ctx.LoadSchedule()
	if err != nil {
		return err
	}

	v := validation.New(timeblock.New())
	result := v.ValidateTemplates(sched.Templates)

	if !result.HasConflicts() {
		if !c.Quiet {
			fmt.Printf("Schedule OK: %d tasks, no conflicts.\n", len(sched.Templates))
		}
		return nil
	}

	fmt.Print(result.FormatReport())
	return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
}
