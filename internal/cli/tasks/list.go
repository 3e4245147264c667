package tasks

import (
	"fmt"

	"github.com/kmorrow/daybell/internal/cli"
	"github.com/kmorrow/daybell/internal/config"
	"github.com/kmorrow/daybell/internal/models"
)

type TaskListCmd struct {
	Category string `help:"Show only tasks from this category."`
	ShowIDs  bool   `help:"Show task IDs." name:"show-ids"`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	sched, err := ctx.LoadSchedule()
	if err != nil {
		return err
	}
	if len(sched.Templates) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	byCategory := make(map[string][]models.TaskTemplate)
	for _, tmpl := range sched.Templates {
		byCategory[tmpl.Category] = append(byCategory[tmpl.Category], tmpl)
	}

	for _, category := range config.Categories {
		if c.Category != "" && c.Category != category {
			continue
		}
		templates := byCategory[category]
		if len(templates) == 0 {
			continue
		}

		fmt.Printf("%s:\n", category)
		for _, tmpl := range templates {
			idStr := ""
			if c.ShowIDs {
				idStr = fmt.Sprintf(" (ID: %s)", tmpl.ID)
			}
			fmt.Printf("  %s %s%s - %dm (%s, priority %d)\n",
				tmpl.Time, tmpl.Title, idStr, tmpl.DurationMin,
				cli.DescribeRecurrence(tmpl.RRule), tmpl.Priority)
			if tmpl.Notes != "" {
				fmt.Printf("      %s\n", tmpl.Notes)
			}
		}
	}

	return nil
}
