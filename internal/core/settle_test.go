package core

import "testing"

func balance(userID int64, name string, cents int64) MemberBalance {
	return MemberBalance{UserID: userID, Name: name, NetBalance: FromCents(cents)}
}

func TestSimplifyDebts(t *testing.T) {
	// A:+40, B:-25, C:-15 -> B pays A 25.00, C pays A 15.00.
	settlements := SimplifyDebts([]MemberBalance{
		balance(1, "A", 4000),
		balance(2, "B", -2500),
		balance(3, "C", -1500),
	})

	if len(settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(settlements))
	}
	if settlements[0].FromUserID != 2 || settlements[0].ToUserID != 1 || settlements[0].Amount.Cents != 2500 {
		t.Fatalf("first settlement wrong: %+v", settlements[0])
	}
	if settlements[1].FromUserID != 3 || settlements[1].ToUserID != 1 || settlements[1].Amount.Cents != 1500 {
		t.Fatalf("second settlement wrong: %+v", settlements[1])
	}
}

func TestSimplifyDebtsZeroBalances(t *testing.T) {
	settlements := SimplifyDebts([]MemberBalance{
		balance(1, "A", 0),
		balance(2, "B", 0),
	})
	if len(settlements) != 0 {
		t.Fatalf("expected no settlements, got %+v", settlements)
	}
}

func TestSimplifyDebtsTransferBound(t *testing.T) {
	cases := [][]MemberBalance{
		{balance(1, "A", 5000), balance(2, "B", -5000)},
		{balance(1, "A", 4000), balance(2, "B", -2500), balance(3, "C", -1500)},
		{balance(1, "A", 1000), balance(2, "B", 2000), balance(3, "C", -500), balance(4, "D", -2500)},
		{balance(1, "A", 1), balance(2, "B", -1), balance(3, "C", 99), balance(4, "D", -99)},
	}
	for i, balances := range cases {
		nonzero := 0
		for _, b := range balances {
			if !b.NetBalance.IsZero() {
				nonzero++
			}
		}
		settlements := SimplifyDebts(balances)
		if len(settlements) > nonzero-1 {
			t.Fatalf("case %d: %d settlements exceeds bound %d", i, len(settlements), nonzero-1)
		}

		// Applying the transfers must zero out every balance.
		remaining := make(map[int64]int64)
		for _, b := range balances {
			remaining[b.UserID] = b.NetBalance.Cents
		}
		for _, s := range settlements {
			remaining[s.FromUserID] += s.Amount.Cents
			remaining[s.ToUserID] -= s.Amount.Cents
		}
		for userID, cents := range remaining {
			if cents != 0 {
				t.Fatalf("case %d: user %d left with %d after settlement", i, userID, cents)
			}
		}
	}
}

func TestSimplifyDebtsDeterministic(t *testing.T) {
	balances := []MemberBalance{
		balance(1, "A", 3000),
		balance(2, "B", 1000),
		balance(3, "C", -2000),
		balance(4, "D", -2000),
	}
	first := SimplifyDebts(balances)
	second := SimplifyDebts(balances)
	if len(first) != len(second) {
		t.Fatalf("settlement counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("settlement %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	// Debtor-major order: C settles fully against A first.
	if first[0].FromName != "C" || first[0].ToName != "A" || first[0].Amount.Cents != 2000 {
		t.Fatalf("unexpected first match: %+v", first[0])
	}
}
