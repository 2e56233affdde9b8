package entities

import "fmt"

// fieldError is a lightweight validation error carrying the offending field
// name, mirroring the teacher's pattern of attaching a field to validation
// failures before they are wrapped into a domain error at the service layer.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newFieldError(field, message string) error {
	return &fieldError{Field: field, Message: message}
}

// FieldOf extracts the offending field name from an error produced by
// Validate(), if any.
func FieldOf(err error) (string, bool) {
	fe, ok := err.(*fieldError)
	if !ok {
		return "", false
	}
	return fe.Field, true
}
