package domain

// CompletionEvent is published after a profile was updated from a category
// page.
type CompletionEvent struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	ProfileID string     `json:"profileId"`
	Category  Category   `json:"category"`
	Rates     []*float64 `json:"actionIntensityRates"`
	Checked   []int      `json:"checkedActionIds"`
	Timestamp int64      `json:"timestamp"`
}

// CompletionEventType names the event on the queue.
const CompletionEventType = "action-category-completed"
