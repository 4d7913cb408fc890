package core

// MembershipFunc answers whether a user belongs to the group an expense is
// being created in. The allocator never touches storage directly.
type MembershipFunc func(userID int64) bool

// EqualShares splits total over userIDs in input order: per-person amount
// with half-up rounding goes to the first N-1 users, the remainder to the
// last. The shares sum to total exactly, and differ by at most one cent.
func EqualShares(total Money, userIDs []int64) ([]ShareEntry, error) {
	if len(userIDs) == 0 {
		return nil, ErrMissingFields
	}
	seen := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			return nil, ErrDuplicateShareEntry
		}
		seen[id] = true
	}

	n := int64(len(userIDs))
	perPerson := total.DivRound(n)

	shares := make([]ShareEntry, 0, n)
	assigned := Money{}
	for _, id := range userIDs[:len(userIDs)-1] {
		shares = append(shares, ShareEntry{UserID: id, Amount: perPerson})
		assigned = assigned.Add(perPerson)
	}
	// Last participant absorbs the rounding remainder.
	shares = append(shares, ShareEntry{
		UserID: userIDs[len(userIDs)-1],
		Amount: total.Sub(assigned),
	})
	return shares, nil
}

// ValidateShares checks a caller-supplied custom split: every amount
// strictly positive, no duplicate users, every user a group member, and the
// sum within CentTolerance of total.
func ValidateShares(shares []ShareEntry, total Money, isMember MembershipFunc) error {
	if len(shares) == 0 {
		return ErrMissingFields
	}
	seen := make(map[int64]bool, len(shares))
	sum := Money{}
	for _, s := range shares {
		if !s.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		if seen[s.UserID] {
			return ErrDuplicateShareEntry
		}
		if !isMember(s.UserID) {
			return ErrInvalidSplitMembers
		}
		seen[s.UserID] = true
		sum = sum.Add(s.Amount)
	}
	if !Close(sum, total) {
		return ErrShareTotalMismatch
	}
	return nil
}

// ValidateContributions is the symmetric check for up-front contributions.
func ValidateContributions(contributions []ShareEntry, total Money, isMember MembershipFunc) error {
	if len(contributions) == 0 {
		return ErrMissingFields
	}
	seen := make(map[int64]bool, len(contributions))
	sum := Money{}
	for _, c := range contributions {
		if !c.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		if seen[c.UserID] {
			return ErrDuplicateContributionEntry
		}
		if !isMember(c.UserID) {
			return ErrPayerNotInGroup
		}
		seen[c.UserID] = true
		sum = sum.Add(c.Amount)
	}
	if !Close(sum, total) {
		return ErrContributionTotalMismatch
	}
	return nil
}

// PrimaryPayer is the user behind the first contribution entry. Deletion
// authorization and display both key off this.
func PrimaryPayer(contributions []ShareEntry) int64 {
	if len(contributions) == 0 {
		return 0
	}
	return contributions[0].UserID
}
