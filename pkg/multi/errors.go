package multi

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMulti is matched by every error of the taxonomy.
	ErrMulti = errors.New("multi")
	// ErrRollback is matched by every error a commit turns into a failure Result.
	ErrRollback = errors.New("multi: rollback")
	// ErrControlledFailure is matched by the failure raised by an Error operation.
	ErrControlledFailure = errors.New("multi: controlled failure")

	ErrBackendMustBeSet  = errors.New("backend must be set")
	ErrAlreadyCommitted  = errors.New("multi has already been committed")
	ErrMergeNotSupported = errors.New("merge is not supported, use Append or Prepend")
	ErrInputType         = errors.New("unexpected input type")
	ErrResultNotFound    = errors.New("result not found")
	ErrResultType        = errors.New("unexpected result type")
)

// IsRollback reports whether err is classified as a rollback.
func IsRollback(err error) bool {
	return errors.Is(err, ErrRollback)
}

type rollbackError struct {
	msg   string
	cause error
}

// NewRollback returns a rollback-classified error.
func NewRollback(msg string) error {
	return &rollbackError{msg: msg}
}

// MarkRollback classifies err as a rollback, keeping it as the cause.
func MarkRollback(err error) error {
	if err == nil {
		return nil
	}

	return &rollbackError{msg: err.Error(), cause: err}
}

func (e *rollbackError) Error() string {
	return e.msg
}

func (e *rollbackError) Unwrap() error {
	return e.cause
}

func (e *rollbackError) Is(target error) bool {
	return target == ErrRollback || target == ErrMulti
}

// OperationFailure reports the operation that aborted a commit.
// It is always classified as a rollback.
type OperationFailure struct {
	Operation *Operation
	// Arguments is the input passed to the operation effect, nil if evaluating the input failed.
	Arguments any
	// CausedBy is nil for a controlled failure.
	CausedBy   error
	controlled bool
}

func newOperationFailure(op *Operation, args any, cause error) *OperationFailure {
	return &OperationFailure{Operation: op, Arguments: args, CausedBy: cause}
}

func newControlledFailure(op *Operation, value any) *OperationFailure {
	return &OperationFailure{Operation: op, Arguments: value, controlled: true}
}

func (f *OperationFailure) Error() string {
	msg := "rollback fired by " + f.Operation.Name()
	if f.CausedBy != nil {
		msg += ": " + f.CausedBy.Error()
	}

	return msg
}

func (f *OperationFailure) Unwrap() error {
	return f.CausedBy
}

func (f *OperationFailure) Is(target error) bool {
	switch target {
	case ErrRollback, ErrMulti:
		return true
	case ErrControlledFailure:
		return f.controlled
	default:
		return false
	}
}

// Value is the value carried by a controlled failure. It aliases Arguments.
func (f *OperationFailure) Value() any {
	return f.Arguments
}

// Controlled reports whether the failure was raised by an Error operation.
func (f *OperationFailure) Controlled() bool {
	return f.controlled
}

// Format prints the operation, the cause and the arguments with %+v.
func (f *OperationFailure) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+') && f.controlled:
		fmt.Fprintf(s, "ControlledFailure(%s value=%v)", f.Operation.Name(), f.Arguments)
	case verb == 'v' && s.Flag('+'):
		fmt.Fprintf(s, "OperationFailure(%s caused_by=%T arguments=%v)", f.Operation.Name(), f.CausedBy, f.Arguments)
	default:
		fmt.Fprint(s, f.Error())
	}
}

// UniqueOperationError is recorded by a builder call adding names already in the Multi.
type UniqueOperationError struct {
	Names []string
}

func (e *UniqueOperationError) Error() string {
	return fmt.Sprintf("operation names are not unique: %s", strings.Join(e.Names, ", "))
}

func (e *UniqueOperationError) Is(target error) bool {
	return target == ErrMulti
}
