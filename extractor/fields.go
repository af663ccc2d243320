// Package extractor turns recognized prescription text into a fixed
// eight-field record using ordered, per-field regular expression tables.
package extractor

// FieldName identifies one of the eight prescription fields.
type FieldName string

const (
	Date       FieldName = "date"
	Prescriber FieldName = "prescriber"
	Medication FieldName = "medication"
	Strength   FieldName = "strength"
	Form       FieldName = "form"
	Quantity   FieldName = "quantity"
	Refills    FieldName = "refills"
	Directions FieldName = "directions"
)

// canonicalOrder is the order fields are extracted, listed and serialized in.
var canonicalOrder = [...]FieldName{
	Date,
	Prescriber,
	Medication,
	Strength,
	Form,
	Quantity,
	Refills,
	Directions,
}

// Fields returns the eight field names in canonical order.
func Fields() []FieldName {
	out := make([]FieldName, len(canonicalOrder))
	copy(out, canonicalOrder[:])
	return out
}

// IsValid reports whether f is one of the eight known fields.
func (f FieldName) IsValid() bool {
	for _, known := range canonicalOrder {
		if f == known {
			return true
		}
	}
	return false
}
