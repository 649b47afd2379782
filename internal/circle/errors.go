package circle

import "fmt"

// OpCode identifies why a lifecycle operation was rejected.
type OpCode uint8

const (
	CodeAlreadyStarted OpCode = iota + 1
	CodeDuplicateMember
	CodeInvalidPayoutRound
	CodeCircleComplete
	CodeMemberNotFound
	CodeDuplicateContribution
	CodeAmountMismatch
	CodeRoundNotFunded
	CodeAlreadyPaid
	CodeInvalidIndex
)

// String returns the snake_case name of the code, used by API responses.
func (c OpCode) String() string {
	switch c {
	case CodeAlreadyStarted:
		return "already_started"
	case CodeDuplicateMember:
		return "duplicate_member"
	case CodeInvalidPayoutRound:
		return "invalid_payout_round"
	case CodeCircleComplete:
		return "circle_complete"
	case CodeMemberNotFound:
		return "member_not_found"
	case CodeDuplicateContribution:
		return "duplicate_contribution"
	case CodeAmountMismatch:
		return "amount_mismatch"
	case CodeRoundNotFunded:
		return "round_not_funded"
	case CodeAlreadyPaid:
		return "already_paid"
	case CodeInvalidIndex:
		return "invalid_index"
	default:
		return "unknown"
	}
}

// OpError is a rejected lifecycle operation. Expected and Actual carry the
// mismatching quantities for codes that have any (amounts, rounds, indexes);
// they are zero otherwise.
type OpError struct {
	Code     OpCode
	Expected uint64
	Actual   uint64
}

func (e *OpError) Error() string {
	switch e.Code {
	case CodeAlreadyStarted:
		return "cannot add members after circle has started"
	case CodeDuplicateMember:
		return "member already exists"
	case CodeInvalidPayoutRound:
		return fmt.Sprintf("invalid payout round %d, must be at most %d", e.Actual, e.Expected)
	case CodeCircleComplete:
		return "circle is already complete"
	case CodeMemberNotFound:
		return "member not found"
	case CodeDuplicateContribution:
		return fmt.Sprintf("member already contributed in round %d", e.Actual)
	case CodeAmountMismatch:
		return fmt.Sprintf("invalid contribution amount: expected %d, got %d", e.Expected, e.Actual)
	case CodeRoundNotFunded:
		return "round is not fully funded yet"
	case CodeAlreadyPaid:
		return "member has already received payout"
	case CodeInvalidIndex:
		return fmt.Sprintf("invalid payout index %d, must be below %d", e.Actual, e.Expected)
	default:
		return "operation rejected"
	}
}

// Is matches any OpError with the same code, so callers can test a wrapped
// error against the exported sentinels with errors.Is.
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	return ok && t.Code == e.Code
}

// Sentinel values for errors.Is matching. Errors returned by operations may
// carry Expected/Actual fields on top of these codes.
var (
	ErrAlreadyStarted        = &OpError{Code: CodeAlreadyStarted}
	ErrDuplicateMember       = &OpError{Code: CodeDuplicateMember}
	ErrInvalidPayoutRound    = &OpError{Code: CodeInvalidPayoutRound}
	ErrCircleComplete        = &OpError{Code: CodeCircleComplete}
	ErrMemberNotFound        = &OpError{Code: CodeMemberNotFound}
	ErrDuplicateContribution = &OpError{Code: CodeDuplicateContribution}
	ErrAmountMismatch        = &OpError{Code: CodeAmountMismatch}
	ErrRoundNotFunded        = &OpError{Code: CodeRoundNotFunded}
	ErrAlreadyPaid           = &OpError{Code: CodeAlreadyPaid}
	ErrInvalidIndex          = &OpError{Code: CodeInvalidIndex}
)

// ValidationError reports the first invariant violated by a standalone state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid state: %s: %s", e.Field, e.Reason)
}

// TransitionError reports an illegal predecessor to successor move.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + e.Reason
}

// DecodeError reports malformed encoded state bytes. It is raised by the
// serialization boundary, never by the core logic.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed state encoding: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
