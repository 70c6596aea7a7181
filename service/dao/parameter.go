package dao

// Parameter is an optional name/value filter passed to List.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter builds a filter parameter; a single value is stored as string,
// multiple values as a string slice.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
