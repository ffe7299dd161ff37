// Package palette maps expense categories to the colors used by charts and
// category badges.
package palette

// Fallback is the color for labels that are not in the palette.
const Fallback = "#7f8c8d"

type entry struct {
	label string
	color string
}

// Declaration order is the order categories are offered in forms.
var entries = []entry{
	{"Food & Dining", "#3498db"},
	{"Transportation", "#2ecc71"},
	{"Housing & Utilities", "#e74c3c"},
	{"Healthcare", "#f1c40f"},
	{"Entertainment & Leisure", "#9b59b6"},
	{"Education & Personal Development", "#1abc9c"},
	{"Clothing & Personal Care", "#e67e22"},
	{"Savings & Investments", "#34495e"},
	{"Travel", "#9b59b6"},
	{"Miscellaneous", "#95a5a6"},
}

var colors = func() map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.label] = e.color
	}
	return m
}()

// Color returns the configured color for label, or Fallback.
func Color(label string) string {
	if c, ok := colors[label]; ok {
		return c
	}
	return Fallback
}

// Categories returns the known category labels in declaration order.
func Categories() []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.label
	}
	return out
}

// Known reports whether label has its own color.
func Known(label string) bool {
	_, ok := colors[label]
	return ok
}
