package bootstrap

// ExitError carries the process exit status a failed step should produce.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func fail(message string) *ExitError {
	return &ExitError{Code: 1, Message: message}
}
