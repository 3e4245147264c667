package timeblock

import (
	"fmt"

	"github.com/kmorrow/daybell/internal/utils"
)

// BlockName identifies one of the fixed day windows.
type BlockName string

const (
	Morning    BlockName = "Morning"
	MidMorning BlockName = "MidMorning"
	Afternoon  BlockName = "Afternoon"
	Evening    BlockName = "Evening"
	Night      BlockName = "Night"
	// Other covers the early-hours residue (00:00-06:00) outside the
	// five named windows.
	Other BlockName = "Other"
)

// Block is a named half-open [Start, End) minute-of-day interval.
type Block struct {
	Name  BlockName
	Start int // minutes from midnight, inclusive
	End   int // minutes from midnight, exclusive
}

// DisplayName returns the human-facing block title.
func (b BlockName) DisplayName() string {
	switch b {
	case MidMorning:
		return "Mid-Morning"
	default:
		return string(b)
	}
}

// Index is the fixed partition of the day used for catch-up bundling.
// The table is not configurable at runtime.
type Index struct {
	blocks []Block
}

// New constructs the index and asserts the partition invariant: the
// named blocks tile [06:00, 24:00) contiguously with no gaps or
// overlaps, leaving 00:00-06:00 for Other.
func New() *Index {
	idx := &Index{
		blocks: []Block{
			{Name: Morning, Start: 6 * 60, End: 10 * 60},
			{Name: MidMorning, Start: 10 * 60, End: 12 * 60},
			{Name: Afternoon, Start: 12 * 60, End: 16 * 60},
			{Name: Evening, Start: 16 * 60, End: 20 * 60},
			{Name: Night, Start: 20 * 60, End: 24 * 60},
		},
	}
	if err := idx.checkPartition(); err != nil {
		panic(err)
	}
	return idx
}

func (idx *Index) checkPartition() error {
	expected := 6 * 60
	for _, b := range idx.blocks {
		if b.Start != expected {
			return fmt.Errorf("time block table broken at %s: starts %s, expected %s",
				b.Name, utils.FormatMinutes(b.Start), utils.FormatMinutes(expected))
		}
		if b.End <= b.Start {
			return fmt.Errorf("time block %s has non-positive span", b.Name)
		}
		expected = b.End
	}
	if expected != 24*60 {
		return fmt.Errorf("time block table ends at %s, expected 24:00", utils.FormatMinutes(expected))
	}
	return nil
}

// BlockFor maps a minute of the day (0..1439) to its block name.
// Minutes before 06:00 map to Other.
func (idx *Index) BlockFor(minuteOfDay int) BlockName {
	for _, b := range idx.blocks {
		if minuteOfDay >= b.Start && minuteOfDay < b.End {
			return b.Name
		}
	}
	return Other
}

// Blocks returns the named blocks in chronological order.
func (idx *Index) Blocks() []Block {
	out := make([]Block, len(idx.blocks))
	copy(out, idx.blocks)
	return out
}

// Order returns the chronological rank of a block for sorting, with
// Other first since it covers the start of the day.
func (idx *Index) Order(name BlockName) int {
	if name == Other {
		return 0
	}
	for i, b := range idx.blocks {
		if b.Name == name {
			return i + 1
		}
	}
	return len(idx.blocks) + 1
}
