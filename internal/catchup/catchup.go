// Package catchup consolidates missed occurrences into per-time-block
// bundles. Reconcile is pure: bundles are recomputed wholesale from the
// occurrence snapshot and never partially mutated.
package catchup

import (
	"fmt"
	"sort"
	"time"

	"github.com/kmorrow/daybell/internal/backlog"
	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/models"
	"github.com/kmorrow/daybell/internal/timeblock"
	"github.com/kmorrow/daybell/internal/utils"
)

type Consolidator struct {
	blocks *timeblock.Index
}

func New(blocks *timeblock.Index) *Consolidator {
	return &Consolidator{blocks: blocks}
}

// Reconcile partitions today's occurrences into time blocks and emits
// one bundle per block holding at least one missed occurrence. An
// occurrence is missed when its firing instant has passed and it was
// neither completed nor skipped. Re-running with an unchanged snapshot
// yields identical bundles.
func (c *Consolidator) Reconcile(now time.Time, occurrences []models.Occurrence) []models.CatchUpBundle {
	missedByBlock := make(map[timeblock.BlockName][]models.Occurrence)
	for _, occ := range occurrences {
		if !utils.SameDay(occ.At, now) {
			continue
		}
		if !occ.At.Before(now) || occ.Acknowledged() {
			continue
		}
		block := c.blocks.BlockFor(utils.MinuteOfDay(occ.At))
		missedByBlock[block] = append(missedByBlock[block], occ)
	}

	var bundles []models.CatchUpBundle
	for block, missed := range missedByBlock {
		// Deterministic id order inside a bundle regardless of the
		// snapshot's iteration order.
		sort.Slice(missed, func(i, j int) bool {
			if !missed[i].At.Equal(missed[j].At) {
				return missed[i].At.Before(missed[j].At)
			}
			return missed[i].ID < missed[j].ID
		})

		ids := make([]string, len(missed))
		for i, occ := range missed {
			ids[i] = occ.ID
		}

		bundles = append(bundles, models.CatchUpBundle{
			Block:       string(block),
			Title:       fmt.Sprintf("CATCH UP: %s", block.DisplayName()),
			GeneratedAt: now,
			MissedIDs:   ids,
			DurationMin: constants.CatchUpMinutesPerTask * len(ids),
			Priority:    constants.CatchUpPriority,
		})
	}

	sort.Slice(bundles, func(i, j int) bool {
		return c.blocks.Order(timeblock.BlockName(bundles[i].Block)) <
			c.blocks.Order(timeblock.BlockName(bundles[j].Block))
	})

	return bundles
}

// BlockEndPassed reports whether now is past the end of the block the
// occurrence falls in, which confirms a fired occurrence as missed.
func (c *Consolidator) BlockEndPassed(now time.Time, occ models.Occurrence) bool {
	if !utils.SameDay(occ.At, now) {
		return occ.At.Before(now)
	}

	block := c.blocks.BlockFor(utils.MinuteOfDay(occ.At))
	if block == timeblock.Other {
		// Early-hours tasks are confirmed missed once the morning block opens.
		return utils.MinuteOfDay(now) >= 6*60
	}
	for _, b := range c.blocks.Blocks() {
		if b.Name == block {
			return utils.MinuteOfDay(now) >= b.End
		}
	}
	return false
}

// DeferExpired hands occurrences left unresolved at the day boundary to
// the backlog ledger. Returns the new entry ids.
func (c *Consolidator) DeferExpired(now time.Time, occurrences []models.Occurrence, ledger *backlog.Ledger) ([]string, error) {
	dayStart := utils.StartOfDay(now)

	var entryIDs []string
	for _, occ := range occurrences {
		if !occ.At.Before(dayStart) || occ.Acknowledged() {
			continue
		}

		originalDate := occ.At.Format(constants.DateFormat)
		reason := fmt.Sprintf("missed on %s", originalDate)
		id, err := ledger.Defer(occ.TemplateID, occ.Title, "", reason, originalDate, occ.Priority)
		if err != nil {
			return entryIDs, err
		}
		entryIDs = append(entryIDs, id)
	}

	return entryIDs, nil
}
