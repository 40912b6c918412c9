package translate

import "fmt"

// UnsupportedLanguageError is returned before any backend call when a request
// names a language outside the configured allow-list.
type UnsupportedLanguageError struct {
	Code string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %q", e.Code)
}

// BackendError wraps a failure (including timeouts) from the external
// detection/translation engine.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("translation backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
