// Package condition defines the four experiment modes of an ablation run.
//
// A mode toggles two interventions independently:
//
//	B0 - baseline, both off
//	B1 - behavioral contracts on
//	B2 - retrieval + verifier on
//	B3 - both on
//
// The name-to-flags mapping is fixed for the lifetime of a run. Every
// evaluation row references exactly one mode by name, and iteration over
// modes always uses the order B0 < B1 < B2 < B3.
package condition

import (
	"errors"
	"fmt"
)

// Condition names one of the four experiment modes.
type Condition string

const (
	// B0 is the baseline with both interventions off.
	B0 Condition = "B0"

	// B1 enables behavioral contracts only.
	B1 Condition = "B1"

	// B2 enables retrieval and the verifier only.
	B2 Condition = "B2"

	// B3 enables the full stack.
	B3 Condition = "B3"
)

// Flags holds the intervention toggles for a mode.
type Flags struct {
	ContractsOn         bool `json:"contracts_on"`
	RetrievalVerifierOn bool `json:"retrieval_verifier_on"`
}

// flagTable is the fixed mapping from mode name to flags.
var flagTable = map[Condition]Flags{
	B0: {ContractsOn: false, RetrievalVerifierOn: false},
	B1: {ContractsOn: true, RetrievalVerifierOn: false},
	B2: {ContractsOn: false, RetrievalVerifierOn: true},
	B3: {ContractsOn: true, RetrievalVerifierOn: true},
}

// All returns the four modes in canonical order.
// The returned slice is a fresh copy; callers may mutate it.
func All() []Condition {
	return []Condition{B0, B1, B2, B3}
}

// Flags returns the intervention toggles for the mode.
// Returns an UnknownModeError for any name outside B0..B3.
func (c Condition) Flags() (Flags, error) {
	f, ok := flagTable[c]
	if !ok {
		return Flags{}, &UnknownModeError{Mode: string(c)}
	}
	return f, nil
}

// Valid reports whether the mode is one of the four known conditions.
func (c Condition) Valid() bool {
	_, ok := flagTable[c]
	return ok
}

// Parse converts a mode name into a Condition.
// Returns an UnknownModeError for unrecognized names.
func Parse(s string) (Condition, error) {
	c := Condition(s)
	if !c.Valid() {
		return "", &UnknownModeError{Mode: s}
	}
	return c, nil
}

// UnknownModeError indicates a mode name outside B0..B3.
// This is always a caller bug, never retried.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown mode %q: must be one of B0, B1, B2, B3", e.Mode)
}

// IsUnknownMode returns true if the error is an UnknownModeError.
// Uses errors.As to handle wrapped errors.
func IsUnknownMode(err error) bool {
	var ue *UnknownModeError
	return errors.As(err, &ue)
}
