package main

import "trawl/internal/workflow"

const (
	exitFailure     = 1
	exitHalted      = 2
	exitInterrupted = 130
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

// outcomeExit maps a run outcome to its exit status. Normal terminations
// return nil.
func outcomeExit(outcome workflow.Outcome, cause string) error {
	switch outcome {
	case workflow.OutcomeHaltedNoWork, workflow.OutcomeCompleted:
		return nil
	case workflow.OutcomeHaltedOnError:
		msg := "run halted on error"
		if cause != "" {
			msg += ": " + cause
		}
		return &exitError{code: exitHalted, message: msg}
	case workflow.OutcomeInterrupted:
		return &exitError{code: exitInterrupted, message: "run interrupted"}
	default:
		return &exitError{code: exitFailure, message: "run ended with unknown outcome " + string(outcome)}
	}
}
