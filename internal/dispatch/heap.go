package dispatch

import "github.com/kmorrow/daybell/internal/models"

// occurrenceHeap is a min-heap of pending occurrences keyed by firing
// instant. Equal instants fire lower priority number first, then
// template id lexical order, so due-event order is deterministic.
type occurrenceHeap []models.Occurrence

func (h occurrenceHeap) Len() int { return len(h) }

func (h occurrenceHeap) Less(i, j int) bool {
	if !h[i].At.Equal(h[j].At) {
		return h[i].At.Before(h[j].At)
	}
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].TemplateID < h[j].TemplateID
}

func (h occurrenceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *occurrenceHeap) Push(x any) {
	*h = append(*h, x.(models.Occurrence))
}

func (h *occurrenceHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
