package sentinel

var _ error = Error("")

// Error is an immutable error value backed by a string.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
