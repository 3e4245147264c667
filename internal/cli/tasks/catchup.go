package tasks

import (
	"fmt"
	"strings"

	"github.com/kmorrow/daybell/internal/catchup"
	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/recurrence"
	"github.com/kmorrow/daybell/internal/timeblock"
	"github.com/kmorrow/daybell/internal/utils"
)

type CatchupCmd struct{}

// Run previews today's catch-up bundles: it expands the schedule for
// today and treats every occurrence whose time has already passed as
// missed, since nothing was acknowledged in this one-shot invocation.
func (c *CatchupCmd) Run(ctx *cli.Context) error {
	sched, err := ctx.LoadSchedule()
	if err != nil {
		return err
	}

	now := ctx.Now(sched)
	dayStart := utils.StartOfDay(now)

	var occurrences []models.Occurrence
	for _, tmpl := range sched.Templates {
		at := recurrence.NextWithDailyFallback(tmpl, dayStart)
		if !utils.SameDay(at, now) {
			continue
		}
		occurrences = append(occurrences, models.NewOccurrence(tmpl, at))
	}

	consolidator := catchup.New(timeblock.New())
	bundles := consolidator.Reconcile(now, occurrences)
	if len(bundles) == 0 {
		fmt.Println("Nothing to catch up on.")
		return nil
	}

	for _, bundle := range bundles {
		fmt.Printf("%s - %dm (%d tasks)\n", bundle.Title, bundle.DurationMin, len(bundle.MissedIDs))
		for _, id := range bundle.MissedIDs {
			fmt.Printf("  %s\n", strings.SplitN(id, "@", 2)[0])
		}
	}

	return nil
}
