package tasks

import (
	"fmt"

	"github.com/kmorrow/daybell/internal/adaptive"
	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/utils"
)

type EstimateCmd struct {
	Budget   int  `help:"Preview redistribution against a total minute budget."`
	Insights bool `help:"Show adaptive insights derived from completion history."`
}

func (c *EstimateCmd) Run(ctx *cli.Context) error {
	sched, err := ctx.LoadSchedule()
	if err != nil {
		return err
	}
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	estimator, err := adaptive.NewWithStore(ctx.Store)
	if err != nil {
		return err
	}

	fmt.Println("Adaptive duration estimates:")
	for _, tmpl := range sched.Templates {
		adj := estimator.Adjustment(tmpl)
		marker := ""
		if adj.AdjustedMin != adj.BaselineMin {
			marker = fmt.Sprintf(" (was %dm, factor %.2f, success %.0f%%)",
				adj.BaselineMin, adj.Factor, adj.SuccessRate*100)
		}
		fmt.Printf("  %s %s: %dm%s\n", tmpl.Time, tmpl.Title, adj.AdjustedMin, marker)
	}

	if c.Budget > 0 {
		now := ctx.Now(sched)
		occs := make([]models.Occurrence, 0, len(sched.Templates))
		for _, tmpl := range sched.Templates {
			at, err := utils.AtTimeOfDay(now, tmpl.Time)
			if err != nil {
				continue
			}
			occs = append(occs, models.NewOccurrence(tmpl, at))
		}

		final := estimator.RedistributeBudget(occs, c.Budget)
		total := 0
		for _, occ := range final {
			total += occ.FinalDurationMin
		}

		fmt.Printf("\nBudget redistribution (%dm available, %dm assigned):\n", c.Budget, total)
		for _, occ := range final {
			fmt.Printf("  %s: %dm (priority %d)\n", occ.Title, occ.FinalDurationMin, occ.Priority)
		}
	}

	if c.Insights {
		fmt.Println("\nInsights:")
		for _, line := range estimator.Insights() {
			fmt.Printf("  %s\n", line)
		}
	}

	return nil
}
