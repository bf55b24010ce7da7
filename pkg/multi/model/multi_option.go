package model

import "time"

// MultiOption defines the interface for hooks observing a commit.
type MultiOption interface {
	// New initialises the option. It runs before any transaction is opened.
	New() error
	// PrepareOperation runs once per operation, in order, before any transaction is opened.
	PrepareOperation(parent, op *OperationInfo) error
	// OnOperationOutput runs after an operation completed and its nested scope committed.
	OnOperationOutput(op *OperationInfo, duration time.Duration) error
	// OnOperationFailure runs when an operation aborted the commit.
	OnOperationFailure(op *OperationInfo, err error, duration time.Duration) error
	// Finish runs after the commit ended, whatever the outcome.
	Finish() error
}
