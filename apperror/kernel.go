package apperror

// Kernel error definitions shared by all bounded contexts.
var (
	Bug = Define(Definition{
		Code:        "BUG",
		Name:        "BugError",
		Description: "An unexpected error occurred.",
		Meta:        UnexpectedMeta(FaultBug),
	})

	ConfigError = Define(Definition{
		Code:        "CONFIG_ERROR",
		Name:        "ConfigError",
		Description: "A configuration error occurred. Check the configuration values.",
		Meta:        UnexpectedMeta(FaultConfig),
	})

	ResourceError = Define(Definition{
		Code:        "RESOURCE_ERROR",
		Name:        "ResourceError",
		Description: "A resource error occurred (CPU, memory, disk, time budget).",
		Meta:        UnexpectedMeta(FaultResource),
	})

	DependencyError = Define(Definition{
		Code:        "DEPENDENCY_ERROR",
		Name:        "DependencyError",
		Description: "An external dependency failed.",
		Meta:        UnexpectedMeta(FaultDependency),
	})

	ConcurrencyError = Define(Definition{
		Code:        "CONCURRENCY_ERROR",
		Name:        "ConcurrencyError",
		Description: "The resource was modified by another operation.",
		Meta:        ExpectedMeta(),
	})
)

// NewBug wraps a programming defect.
func NewBug(cause error) *Error {
	return Bug.New(nil, cause)
}

// NewDependency wraps a failure of an external dependency (database, network, broker).
func NewDependency(cause error) *Error {
	return DependencyError.New(nil, cause)
}

// NewConcurrency wraps an optimistic concurrency conflict.
func NewConcurrency(cause error) *Error {
	return ConcurrencyError.New(nil, cause)
}

// NewResource wraps an exhausted resource, e.g. an expired deadline.
func NewResource(cause error) *Error {
	return ResourceError.New(nil, cause)
}
