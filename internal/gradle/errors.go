package gradle

import "fmt"

// ParseError is returned when build.gradle does not contain a field in the
// expected shape.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("cannot parse %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("cannot parse %s %q: %s", e.Field, e.Value, e.Reason)
}

// NoChangeError is returned when a patch leaves the text untouched.
type NoChangeError struct {
	Field string
}

func (e *NoChangeError) Error() string {
	return fmt.Sprintf("could not update %s", e.Field)
}
