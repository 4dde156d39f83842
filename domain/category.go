package domain

// Category groups actions by footprint area. Only the values returned by
// Categories are valid.
type Category string

const (
	Mobility Category = "mobility"
	Housing  Category = "housing"
	Food     Category = "food"
	Other    Category = "other"
)

var categories = []Category{Mobility, Housing, Food, Other}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory validates a raw path segment.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range categories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// ActionPath is the page that lists the category's actions.
func (c Category) ActionPath() string {
	return "/category/" + string(c) + "/action"
}

// CompletionPath is where the user lands after a successful submission.
func (c Category) CompletionPath() string {
	return "/category/" + string(c) + "/completion"
}
