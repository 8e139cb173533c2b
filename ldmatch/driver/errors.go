package driver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNormalization marks a failure to flatten the document or a pattern.
// Such a failure aborts the run before any action is invoked.
var ErrNormalization = errors.New("normalization failed")

// FaultError is an enumeration fault observed while matching one registration
type FaultError struct {
	Match string
	Err   error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("match %s: %v", e.Match, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// FaultPolicy decides how faults from several registrations are reported
type FaultPolicy int

const (
	// FaultCollect reports every fault of every registration, joined
	FaultCollect FaultPolicy = iota
	// FaultLastWins reports only the last fault observed across the run
	FaultLastWins
	// FaultFirst stops after the first registration that faulted and
	// reports its first fault
	FaultFirst
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultCollect:
		return "collect"
	case FaultLastWins:
		return "last"
	case FaultFirst:
		return "first"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", int(p))
	}
}

// ParseFaultPolicy parses the name of a fault policy
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(s) {
	case "", "collect":
		return FaultCollect, nil
	case "last", "last-wins":
		return FaultLastWins, nil
	case "first":
		return FaultFirst, nil
	default:
		return 0, fmt.Errorf("unknown fault policy: %s", s)
	}
}

// faultTracker accumulates faults under a policy
type faultTracker struct {
	policy FaultPolicy
	faults []error
}

func (t *faultTracker) add(match string, err error) {
	fault := &FaultError{Match: match, Err: err}
	switch t.policy {
	case FaultLastWins:
		t.faults = []error{fault}
	case FaultFirst:
		if len(t.faults) == 0 {
			t.faults = []error{fault}
		}
	default:
		t.faults = append(t.faults, fault)
	}
}

// stop reports whether no further registration should run
func (t *faultTracker) stop() bool {
	return t.policy == FaultFirst && len(t.faults) > 0
}

func (t *faultTracker) err() error {
	if len(t.faults) == 1 {
		return t.faults[0]
	}
	return errors.Join(t.faults...)
}
