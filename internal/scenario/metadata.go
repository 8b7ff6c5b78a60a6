package scenario

import "strconv"

// Event metadata is stored as an open string-keyed map so new step payloads
// never require a schema change. The accessors below give typed views of the
// shapes we know ahead of time; unknown keys ride along untouched. The open
// fallback is intentionally loosely typed.

// Resource is the ordinal self-reported well-being level recorded at scenario
// start and end.
type Resource int

const (
	ResourceUnknown Resource = iota
	ResourceLow
	ResourceMedium
	ResourceHigh
)

// ParseResource maps the wire value ("low"/"medium"/"high") to its ordinal.
func ParseResource(v any) Resource {
	s, ok := v.(string)
	if !ok {
		return ResourceUnknown
	}
	switch s {
	case "low":
		return ResourceLow
	case "medium":
		return ResourceMedium
	case "high":
		return ResourceHigh
	}
	return ResourceUnknown
}

// Metadata keys with known shapes.
const (
	MetaCard            = "card"             // int: card number drawn
	MetaResourceInitial = "resource_initial" // string: low|medium|high
	MetaResourceFinal   = "resource_final"   // string: low|medium|high
	MetaCategory        = "category"         // string: free categorical field
)

// CardDrawn extracts the drawn card number from a card_drawn event.
func CardDrawn(meta map[string]any) (int, bool) {
	v, ok := meta[MetaCard]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON numbers decode as float64.
		return int(n), true
	}
	return 0, false
}

// ResourceShift extracts the initial and final resource states from metadata.
// Either may be ResourceUnknown when absent or malformed.
func ResourceShift(meta map[string]any) (initial, final Resource) {
	return ParseResource(meta[MetaResourceInitial]), ParseResource(meta[MetaResourceFinal])
}

// Category extracts a categorical metadata field by name. Numeric values
// (a drawn card number, for one) are rendered as their decimal string so
// they can be bucketed like any other category.
func Category(meta map[string]any, field string) (string, bool) {
	switch v := meta[field].(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}
