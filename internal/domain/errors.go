package domain

import "fmt"

// RecognitionError carries a short error code alongside the cause, like the
// error names a speech recognizer reports.
type RecognitionError struct {
	Code string
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}
