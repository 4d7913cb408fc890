package core

// CreditRow is one (expense, user) share joined with the sums of that
// user's payments and contributions against it. Storage produces these;
// the aggregator folds them through AppliedCredit.
type CreditRow struct {
	UserID      int64
	Share       Money
	Paid        Money
	Contributed Money
}

// ComputeBalances derives every member's position for a group.
//
// Net balance is total contributed minus total owed (signed). Pending is
// total owed minus the applied credit summed over the member's shares,
// floored at zero. Member order is preserved in the output, so callers
// passing a deterministic member list get a deterministic result.
func ComputeBalances(members []User, contributed, owed map[int64]Money, credits []CreditRow) []MemberBalance {
	creditByUser := make(map[int64]Money, len(members))
	for _, row := range credits {
		applied := AppliedCredit(row.Share, row.Contributed, row.Paid)
		creditByUser[row.UserID] = creditByUser[row.UserID].Add(applied)
	}

	balances := make([]MemberBalance, 0, len(members))
	for _, member := range members {
		paidIn := contributed[member.ID]
		owes := owed[member.ID]
		credit := creditByUser[member.ID]
		balances = append(balances, MemberBalance{
			UserID:           member.ID,
			Name:             member.Name,
			NetBalance:       paidIn.Sub(owes),
			PaidTowardShares: credit,
			Pending:          MaxMoney(Money{}, owes.Sub(credit)),
		})
	}
	return balances
}
