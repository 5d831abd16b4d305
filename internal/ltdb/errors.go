package ltdb

import (
	"fmt"

	"github.com/KilimcininKorOglu/oba/internal/ldap"
)

// Error is a backend error carrying the LDAP result code it maps to.
// Callers that only care about the taxonomy can compare with errors.Is
// against the package-level sentinels; callers that need the wire-level
// code can use errors.As to recover *Error.
type Error struct {
	Code ldap.ResultCode
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func newErr(code ldap.ResultCode, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

func wrapErr(code ldap.ResultCode, msg string, cause error) *Error {
	return &Error{Code: code, msg: msg, err: cause}
}

// Sentinels for the taxonomy in the backend's error handling design.
// Each is a distinct *Error value; use errors.Is for a category check.
var (
	ErrOperations           = newErr(ldap.ResultOperationsError, "operations error")
	ErrProtocol             = newErr(ldap.ResultProtocolError, "protocol error")
	ErrBusy                 = newErr(ldap.ResultBusy, "busy")
	ErrTimeLimitExceeded    = newErr(ldap.ResultTimeLimitExceeded, "time limit exceeded")
	ErrEntryAlreadyExists   = newErr(ldap.ResultEntryAlreadyExists, "entry already exists")
	ErrNoSuchObject         = newErr(ldap.ResultNoSuchObject, "no such object")
	ErrNoSuchAttribute      = newErr(ldap.ResultNoSuchAttribute, "no such attribute")
	ErrAttributeOrValue     = newErr(ldap.ResultAttributeOrValueExists, "attribute or value exists")
	ErrInvalidSyntax        = newErr(ldap.ResultInvalidAttributeSyntax, "invalid attribute syntax")
	ErrInsufficientAccess   = newErr(ldap.ResultInsufficientAccessRights, "insufficient access rights")
	ErrUnsupportedCritical  = newErr(ldap.ResultUnavailableCriticalExtension, "unsupported critical extension")
	ErrOther                = newErr(ldap.ResultOther, "other error")
)

// Is implements the errors.Is contract by comparing taxonomy codes so
// wrapped instances (e.g. produced by wrapErr) still match the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
