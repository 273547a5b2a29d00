package persist

import "fmt"

// InvalidConfigError reports an unknown persistence mode or a mode whose
// backend was never configured.
type InvalidConfigError struct {
	// Mode is the offending mode name.
	Mode string

	// Reason is set when the mode is known but unusable.
	Reason string
}

func (e *InvalidConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("persist: %s for mode '%s'", e.Reason, e.Mode)
	}
	return fmt.Sprintf("persist: unknown persist mode '%s'", e.Mode)
}

// Code returns the CLI error code.
func (e *InvalidConfigError) Code() string { return "E202" }
