package errors

import "errors"

// Sentinel errors for the failure taxonomy of the pipeline
var (
	// ErrClassification indicates the classifier produced output that could
	// not be parsed into one of the allowed labels
	ErrClassification = errors.New("classification failure")

	// ErrProvider indicates an evidence provider call failed or timed out
	ErrProvider = errors.New("provider failure")

	// ErrGeneration indicates the answer generator call failed or timed out
	ErrGeneration = errors.New("generation failure")

	// ErrLoopBound indicates a rewrite or regeneration counter was exhausted
	ErrLoopBound = errors.New("loop bound exceeded")

	// ErrConfiguration indicates a required collaborator was not registered
	ErrConfiguration = errors.New("configuration error")
)
