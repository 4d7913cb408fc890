package core

// SimplifyDebts converts net balances into a minimal list of debtor to
// creditor transfers.
//
// Members are partitioned into creditors (positive net balance) and
// debtors (negative, stored as magnitude), preserving input order within
// each partition. A two-pointer greedy match then repeatedly settles
// min(debtor remaining, creditor remaining) and advances whichever side
// reaches zero. For balances summing to zero this emits at most
// (#debtors + #creditors - 1) transfers.
//
// The balances are assumed to sum to ~zero; that holds by construction
// because every contribution funds exactly the shares it is linked to,
// and is not re-validated here.
func SimplifyDebts(balances []MemberBalance) []Settlement {
	type party struct {
		userID int64
		name   string
		amount Money
	}

	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.NetBalance.IsPositive():
			creditors = append(creditors, party{b.UserID, b.Name, b.NetBalance})
		case b.NetBalance.IsNegative():
			debtors = append(debtors, party{b.UserID, b.Name, b.NetBalance.Neg()})
		}
	}

	var settlements []Settlement
	di, ci := 0, 0
	for di < len(debtors) && ci < len(creditors) {
		debtor := &debtors[di]
		creditor := &creditors[ci]

		settled := MinMoney(debtor.amount, creditor.amount)
		if settled.IsPositive() {
			settlements = append(settlements, Settlement{
				FromUserID: debtor.userID,
				FromName:   debtor.name,
				ToUserID:   creditor.userID,
				ToName:     creditor.name,
				Amount:     settled,
			})
		}

		debtor.amount = debtor.amount.Sub(settled)
		creditor.amount = creditor.amount.Sub(settled)

		if !debtor.amount.IsPositive() {
			di++
		}
		if !creditor.amount.IsPositive() {
			ci++
		}
	}
	return settlements
}
