package harness

import "fmt"

// ConfigError is a defect in the scenario catalogue. It is fatal and is
// reported before any scenario executes.
type ConfigError struct {
	Scenario string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Scenario != "" && e.Field != "":
		return fmt.Sprintf("scenario %q: %s: %s", e.Scenario, e.Field, e.Message)
	case e.Scenario != "":
		return fmt.Sprintf("scenario %q: %s", e.Scenario, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

// SetupError is an unmet run precondition: missing executable, wrong build
// provenance, or a results directory that cannot be prepared.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
