package core

// AppliedCredit is how much of a share counts as satisfied: up-front
// contributions plus later payments, capped at the share amount. Expense
// listing, balance aggregation and payment recording all go through this
// one function so the three views can never disagree.
func AppliedCredit(share, contributed, paid Money) Money {
	return MinMoney(share, contributed.Add(paid))
}

// PendingAmount is the unsatisfied remainder of a share, floored at zero.
func PendingAmount(share, contributed, paid Money) Money {
	pending := share.Sub(AppliedCredit(share, contributed, paid))
	if pending.IsNegative() {
		return Money{}
	}
	return pending
}

// CheckPayment validates a prospective payment against the current credit
// state of one (expense, user) share. It returns the remaining balance
// alongside any rejection so callers can report it.
func CheckPayment(share, contributed, paid, amount Money) (remaining Money, err error) {
	remaining = share.Sub(AppliedCredit(share, contributed, paid))
	if !remaining.IsPositive() {
		return remaining, ErrShareAlreadySettled
	}
	if amount.Cmp(remaining) > 0 {
		return remaining, &ExceedsRemainingError{Remaining: remaining}
	}
	return remaining, nil
}

// PendingShare is one share with an outstanding balance, used by the
// mark-paid walk.
type PendingShare struct {
	ExpenseID int64
	Pending   Money
}

// SharePayment is one payment to create against a specific expense share.
type SharePayment struct {
	ExpenseID int64
	Amount    Money
}

// ConsumePending walks pending shares in order, greedily covering each
// share's outstanding balance until target is exhausted. It returns the
// per-share payment amounts and the applied total; any unspent remainder
// of target is target minus the returned total, never silently dropped.
// The input order is preserved; callers pass shares in ascending expense
// id order for determinism.
func ConsumePending(pending []PendingShare, target Money) (applied []SharePayment, total Money) {
	remaining := target
	for _, p := range pending {
		if !remaining.IsPositive() {
			break
		}
		amount := MinMoney(remaining, p.Pending)
		if !amount.IsPositive() {
			continue
		}
		applied = append(applied, SharePayment{ExpenseID: p.ExpenseID, Amount: amount})
		total = total.Add(amount)
		remaining = remaining.Sub(amount)
	}
	return applied, total
}
