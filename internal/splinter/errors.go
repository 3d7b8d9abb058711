package splinter

import "errors"

var (
	// ErrEmptyCorpus is returned when no word of two or more symbols survives
	// pre-processing. Training must stop without writing artifacts.
	ErrEmptyCorpus = errors.New("splinter: no words left to learn from")

	// ErrMissingReductionTable is returned when an engine is built without a
	// loaded model.
	ErrMissingReductionTable = errors.New("splinter: reduction table not loaded")
)
