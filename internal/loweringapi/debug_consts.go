package loweringapi

// These consts gate the debug output of the lowering packages.
// Keeping them in one place makes it obvious where debug logging lives.

// ----- Debug logging -----
// These consts must be disabled by default. Enable them only when debugging.

const (
	ABILoggingEnabled            = false
	VectorLoweringLoggingEnabled = false
	VLRenameLoggingEnabled       = false
)

// ----- Output prints -----
// These consts must be disabled by default. Enable them only when debugging.

const (
	// PrintLoweredGraph prints the graph reachable from the root after each dispatched operation.
	PrintLoweredGraph = false
)

// ----- Validations -----
// These consts must be enabled by default until the lowering has been fuzzed against a reference.

const (
	// GraphValidationEnabled enables chain/lane-count sanity checks while building nodes.
	GraphValidationEnabled = true
)
