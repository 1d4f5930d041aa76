package vm

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrKind enumerates the error/status kinds the VM can surface (spec
// §7). QuitStatus is not an error in batch mode (HALT executed).
type ErrKind int

const (
	KindNone ErrKind = iota
	KindMallocFail
	KindIOErr
	KindBadType
	KindBadReadExpr
	KindUndefinedFunc
	KindMismatchedParams
	KindArrayLen
	KindBadIBase
	KindBadOBase
	KindBadScale
	KindDivideByZero
	KindBadAssign
	KindQuit
	KindSignal
)

func (k ErrKind) String() string {
	switch k {
	case KindMallocFail:
		return "MALLOC_FAIL"
	case KindIOErr:
		return "IO_ERR"
	case KindBadType:
		return "EXEC_BAD_TYPE"
	case KindBadReadExpr:
		return "EXEC_BAD_READ_EXPR"
	case KindUndefinedFunc:
		return "EXEC_UNDEFINED_FUNC"
	case KindMismatchedParams:
		return "EXEC_MISMATCHED_PARAMS"
	case KindArrayLen:
		return "EXEC_ARRAY_LEN"
	case KindBadIBase:
		return "EXEC_BAD_IBASE"
	case KindBadOBase:
		return "EXEC_BAD_OBASE"
	case KindBadScale:
		return "EXEC_BAD_SCALE"
	case KindDivideByZero:
		return "MATH_DIVIDE_BY_ZERO"
	case KindBadAssign:
		return "PARSE_BAD_ASSIGN"
	case KindQuit:
		return "QUIT"
	case KindSignal:
		return "SIGNAL"
	default:
		return "SUCCESS"
	}
}

// ExecError is the status/error value every opcode dispatch may
// return (spec §7 policy). It wraps an optional underlying cause with
// github.com/pkg/errors so IO/allocation failures keep their stack
// context, the way the teacher's SentraError carries location +
// call-stack context without a bare fmt.Errorf.
type ExecError struct {
	Kind    ErrKind
	Message string
	cause   error
}

func (e *ExecError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *ExecError) Unwrap() error { return e.cause }

// NewErr builds a bare status error of the given kind.
func NewErr(kind ErrKind, msg string) *ExecError {
	return &ExecError{Kind: kind, Message: msg}
}

// WrapErr wraps cause with pkg/errors, attaching kind.
func WrapErr(kind ErrKind, cause error, msg string) *ExecError {
	return &ExecError{Kind: kind, Message: msg, cause: pkgerrors.Wrap(cause, msg)}
}

// IsQuit reports whether err is the HALT/QUIT status (not a real
// error in batch mode, per spec §7).
func IsQuit(err error) bool {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Kind == KindQuit
	}
	return false
}
