package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	User struct {
		ID    int64
		Name  string
		Email string
	}

	Group struct {
		ID        int64
		Name      string
		CreatedBy int64
	}

	// Expense is a cost shared inside a group. PaidBy is the primary
	// payer: the user behind the first contribution entry. Expenses are
	// immutable once created; the only mutation is a cascading delete.
	Expense struct {
		ID        int64
		GroupID   int64
		Title     string
		Amount    Money
		PaidBy    int64
		CreatedAt time.Time
	}

	// ShareEntry is one participant's assigned portion of an expense, or
	// one contributor's up-front payment. Allocator input and output.
	ShareEntry struct {
		UserID int64
		Amount Money
	}

	Payment struct {
		ID        int64
		ExpenseID int64
		UserID    int64
		Amount    Money
		CreatedAt time.Time
	}

	// MemberBalance is one group member's derived position. NetBalance is
	// signed (contributed minus owed); Pending is the unsigned remainder
	// of the member's shares not yet covered by credit. The two answer
	// different questions and are both exposed.
	MemberBalance struct {
		UserID           int64
		Name             string
		NetBalance       Money
		PaidTowardShares Money
		Pending          Money
	}

	// Settlement is one suggested peer-to-peer transfer. Transient:
	// it only exists in the output of a balances call.
	Settlement struct {
		FromUserID int64
		FromName   string
		ToUserID   int64
		ToName     string
		Amount     Money
	}
)

// Stable error kinds. Callers render these as precise user-facing messages;
// no failure is reported as a generic error.
var (
	ErrMissingFields = errors.New("missing fields")
	ErrInvalidAmount = errors.New("invalid amount")

	ErrNotAuthorized      = errors.New("not a member of this group")
	ErrGroupNotFound      = errors.New("group not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailInUse         = errors.New("email already in use")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrOnlyPayerCanDelete = errors.New("only the payer can delete an expense")

	ErrShareTotalMismatch         = errors.New("share total does not match expense amount")
	ErrContributionTotalMismatch  = errors.New("contribution total does not match expense amount")
	ErrInvalidSplitMembers        = errors.New("split includes users outside the group")
	ErrDuplicateShareEntry        = errors.New("duplicate share entry")
	ErrDuplicateContributionEntry = errors.New("duplicate contribution entry")
	ErrPayerNotInGroup            = errors.New("payer is not a group member")

	ErrUserNotInGroup         = errors.New("user is not a group member")
	ErrUserNotInExpense       = errors.New("user has no share in this expense")
	ErrOnlySelfCanPay         = errors.New("payments can only be recorded for yourself")
	ErrOnlySelfCanMarkPaid    = errors.New("balances can only be marked paid for yourself")
	ErrShareAlreadySettled    = errors.New("share already settled")
	ErrAmountExceedsRemaining = errors.New("amount exceeds remaining share balance")
	ErrNothingPending         = errors.New("nothing pending")
)

// ExceedsRemainingError reports a rejected payment together with the
// remaining balance, so callers can tell the user how much is still open.
// It matches ErrAmountExceedsRemaining under errors.Is.
type ExceedsRemainingError struct {
	Remaining Money
}

func (e *ExceedsRemainingError) Error() string {
	return fmt.Sprintf("amount exceeds remaining share balance (%s left)", e.Remaining)
}

func (e *ExceedsRemainingError) Is(target error) bool {
	return target == ErrAmountExceedsRemaining
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrMissingFields
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	return e.Amount.Validate()
}
