// Package placetype holds the fixed table of place categories and their
// display metadata.
package placetype

// Descriptor is the display metadata of a place category.
type Descriptor struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

const (
	Restaurant    = "restaurant"
	Bar           = "bar"
	Entertainment = "entertainment"
	Culture       = "culture"
	Shopping      = "shopping"
	Outdoor       = "outdoor"
	Nightlife     = "nightlife"
	Other         = "other"

	// Default is the type preselected in the add-place form.
	Default = Restaurant
)

// The fallback entry must stay last.
var descriptors = []Descriptor{
	{Value: Restaurant, Label: "🍽️ Restaurant", Color: "#ef4444"},
	{Value: Bar, Label: "🍻 Bar/Café", Color: "#f59e0b"},
	{Value: Entertainment, Label: "🎯 Entertainment", Color: "#a855f7"},
	{Value: Culture, Label: "🎭 Culture", Color: "#3b82f6"},
	{Value: Shopping, Label: "🛍️ Shopping", Color: "#22c55e"},
	{Value: Outdoor, Label: "🌳 Outdoors", Color: "#10b981"},
	{Value: Nightlife, Label: "🌙 Nightlife", Color: "#6366f1"},
	{Value: Other, Label: "📍 Other", Color: "#6b7280"},
}

var byValue = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.Value] = d
	}
	return m
}()

// Lookup returns the descriptor for value. Unknown and empty values resolve to
// the "other" descriptor.
func Lookup(value string) Descriptor {
	if d, ok := byValue[value]; ok {
		return d
	}
	return descriptors[len(descriptors)-1]
}

// Valid reports whether value is one of the registered types.
func Valid(value string) bool {
	_, ok := byValue[value]
	return ok
}

// Normalize maps unknown values to Other.
func Normalize(value string) string {
	return Lookup(value).Value
}

// All returns a copy of the registry in display order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}
