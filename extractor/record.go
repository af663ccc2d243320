package extractor

// Record holds one value per field. An empty string means the field was not
// found; every key is always present once serialized, in canonical order.
type Record struct {
	Date       string `json:"date"`
	Prescriber string `json:"prescriber"`
	Medication string `json:"medication"`
	Strength   string `json:"strength"`
	Form       string `json:"form"`
	Quantity   string `json:"quantity"`
	Refills    string `json:"refills"`
	Directions string `json:"directions"`
}

// Get returns the value of a field, "" for unknown fields.
func (r *Record) Get(field FieldName) string {
	if p := r.slot(field); p != nil {
		return *p
	}
	return ""
}

// Set assigns a field value. Unknown fields are ignored.
func (r *Record) Set(field FieldName, value string) {
	if p := r.slot(field); p != nil {
		*p = value
	}
}

func (r *Record) slot(field FieldName) *string {
	switch field {
	case Date:
		return &r.Date
	case Prescriber:
		return &r.Prescriber
	case Medication:
		return &r.Medication
	case Strength:
		return &r.Strength
	case Form:
		return &r.Form
	case Quantity:
		return &r.Quantity
	case Refills:
		return &r.Refills
	case Directions:
		return &r.Directions
	}
	return nil
}

// Map returns the record as a field-keyed map holding all eight keys.
func (r Record) Map() map[FieldName]string {
	m := make(map[FieldName]string, len(canonicalOrder))
	for _, f := range canonicalOrder {
		m[f] = r.Get(f)
	}
	return m
}

// Found counts the fields holding a value.
func (r Record) Found() int {
	n := 0
	for _, f := range canonicalOrder {
		if r.Get(f) != "" {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no field was found.
func (r Record) IsEmpty() bool {
	return r.Found() == 0
}
