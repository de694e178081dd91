package enginetypes

// Error kinds from spec.md §7. Each satisfies error and exposes Kind() so
// callers can classify without string-matching the message.

// ConfigError: invalid DAG (cycle, self-dep, unknown dependency, unknown
// node kind, ...). Raised during construction; fatal.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "config error: " + e.Msg }
func (e *ConfigError) Kind() string  { return "ConfigError" }

// DependencyError: at runtime, a dependency is missing or its path cannot
// be resolved; non-retryable failure for the consuming node.
type DependencyError struct{ Msg string }

func (e *DependencyError) Error() string { return "dependency error: " + e.Msg }
func (e *DependencyError) Kind() string  { return "DependencyError" }

// ExpressionError: condition expression failed to evaluate; non-retryable.
type ExpressionError struct{ Msg string }

func (e *ExpressionError) Error() string { return "expression error: " + e.Msg }
func (e *ExpressionError) Kind() string  { return "ExpressionError" }

// ExecutorError: an executor returned success=false or raised; retryable.
type ExecutorError struct{ Msg string }

func (e *ExecutorError) Error() string { return "executor error: " + e.Msg }
func (e *ExecutorError) Kind() string  { return "ExecutorError" }

// TimeoutError: per-node timeout exceeded; retryable.
type TimeoutError struct{ Msg string }

func (e *TimeoutError) Error() string { return "timeout: " + e.Msg }
func (e *TimeoutError) Kind() string  { return "TimeoutError" }

// ValidationError: output failed schema validation; non-retryable.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return "validation error: " + e.Msg }
func (e *ValidationError) Kind() string  { return "ValidationError" }

// GuardAbort: token or depth guard tripped; stops further levels.
type GuardAbort struct{ Msg string }

func (e *GuardAbort) Error() string { return "guard abort: " + e.Msg }
func (e *GuardAbort) Kind() string  { return "GuardAbort" }

// PolicyStop: failure policy denies continuation; stops further levels.
type PolicyStop struct{ Msg string }

func (e *PolicyStop) Error() string { return "policy stop: " + e.Msg }
func (e *PolicyStop) Kind() string  { return "PolicyStop" }
