package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"splitledger/internal/core"
)

// RecordPayment is the single invariant-preserving write path for payments.
// The share lookup, credit check and insert run in one transaction, so two
// racing payments against the same share cannot together overdraw it.
func (r *Repository) RecordPayment(ctx context.Context, expenseID, userID int64, amount core.Money) (core.Payment, error) {
	var payment core.Payment
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var shareCents int64
		err := tx.QueryRowContext(ctx,
			"SELECT share_cents FROM expense_shares WHERE expense_id = ? AND user_id = ?",
			expenseID, userID,
		).Scan(&shareCents)
		if err == sql.ErrNoRows {
			return core.ErrUserNotInExpense
		}
		if err != nil {
			return fmt.Errorf("get share: %w", err)
		}

		var paidCents, contributedCents int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(amount_cents), 0) FROM expense_payments WHERE expense_id = ? AND user_id = ?",
			expenseID, userID,
		).Scan(&paidCents); err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(amount_cents), 0) FROM expense_contributions WHERE expense_id = ? AND user_id = ?",
			expenseID, userID,
		).Scan(&contributedCents); err != nil {
			return fmt.Errorf("sum contributions: %w", err)
		}

		if _, err := core.CheckPayment(
			core.FromCents(shareCents),
			core.FromCents(contributedCents),
			core.FromCents(paidCents),
			amount,
		); err != nil {
			return err
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO expense_payments (expense_id, user_id, amount_cents, created_at) VALUES (?, ?, ?, ?)",
			expenseID, userID, amount.Cents, now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("payment id: %w", err)
		}
		payment = core.Payment{
			ID:        id,
			ExpenseID: expenseID,
			UserID:    userID,
			Amount:    amount,
			CreatedAt: now.UTC(),
		}
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", payment.ID,
		"expense_id", expenseID,
		"user_id", userID,
		"amount_cents", amount.Cents)
	return payment, nil
}

// MarkBalancePaid settles the user's pending shares across the group,
// oldest expense first, until target is exhausted. A nil target defaults to
// the user's total pending. All payment rows are created in one
// transaction; the applied total is reported so callers can surface any
// unspent remainder.
func (r *Repository) MarkBalancePaid(ctx context.Context, groupID, userID int64, target *core.Money) ([]core.Payment, core.Money, error) {
	var payments []core.Payment
	var totalApplied core.Money

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT es.expense_id, es.share_cents,
			       COALESCE(pay.cents, 0), COALESCE(contrib.cents, 0)
			FROM expense_shares es
			JOIN expenses e ON es.expense_id = e.id
			LEFT JOIN (
				SELECT expense_id, user_id, SUM(amount_cents) AS cents
				FROM expense_payments GROUP BY expense_id, user_id
			) pay ON pay.expense_id = es.expense_id AND pay.user_id = es.user_id
			LEFT JOIN (
				SELECT expense_id, user_id, SUM(amount_cents) AS cents
				FROM expense_contributions GROUP BY expense_id, user_id
			) contrib ON contrib.expense_id = es.expense_id AND contrib.user_id = es.user_id
			WHERE e.group_id = ? AND es.user_id = ?
			ORDER BY es.expense_id`,
			groupID, userID,
		)
		if err != nil {
			return fmt.Errorf("list pending shares: %w", err)
		}

		var pending []core.PendingShare
		totalPending := core.Money{}
		for rows.Next() {
			var expenseID, shareCents, paidCents, contributedCents int64
			if err := rows.Scan(&expenseID, &shareCents, &paidCents, &contributedCents); err != nil {
				rows.Close()
				return fmt.Errorf("scan pending share: %w", err)
			}
			p := core.PendingAmount(core.FromCents(shareCents), core.FromCents(contributedCents), core.FromCents(paidCents))
			if p.IsPositive() {
				pending = append(pending, core.PendingShare{ExpenseID: expenseID, Pending: p})
				totalPending = totalPending.Add(p)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate pending shares: %w", err)
		}

		amount := totalPending
		if target != nil {
			amount = *target
		}
		if !amount.IsPositive() {
			return core.ErrNothingPending
		}

		applied, total := core.ConsumePending(pending, amount)
		now := time.Now()
		for _, a := range applied {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO expense_payments (expense_id, user_id, amount_cents, created_at) VALUES (?, ?, ?, ?)",
				a.ExpenseID, userID, a.Amount.Cents, now.Unix(),
			)
			if err != nil {
				return fmt.Errorf("insert payment: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("payment id: %w", err)
			}
			payments = append(payments, core.Payment{
				ID:        id,
				ExpenseID: a.ExpenseID,
				UserID:    userID,
				Amount:    a.Amount,
				CreatedAt: now.UTC(),
			})
		}
		totalApplied = total
		return nil
	})
	if err != nil {
		return nil, core.Money{}, err
	}

	slog.InfoContext(ctx, "Balance marked paid",
		"group_id", groupID,
		"user_id", userID,
		"payments", len(payments),
		"applied_cents", totalApplied.Cents)
	return payments, totalApplied, nil
}

// ContributionSums totals each member's up-front contributions across the
// group.
func (r *Repository) ContributionSums(ctx context.Context, groupID int64) (map[int64]core.Money, error) {
	return r.sumByUser(ctx, `
		SELECT ec.user_id, SUM(ec.amount_cents)
		FROM expense_contributions ec
		JOIN expenses e ON ec.expense_id = e.id
		WHERE e.group_id = ?
		GROUP BY ec.user_id`,
		groupID)
}

// OwedSums totals each member's assigned shares across the group.
func (r *Repository) OwedSums(ctx context.Context, groupID int64) (map[int64]core.Money, error) {
	return r.sumByUser(ctx, `
		SELECT es.user_id, SUM(es.share_cents)
		FROM expense_shares es
		JOIN expenses e ON es.expense_id = e.id
		WHERE e.group_id = ?
		GROUP BY es.user_id`,
		groupID)
}

// CreditRows returns every share in the group joined with the holder's
// payment and contribution sums, for the balance aggregator.
func (r *Repository) CreditRows(ctx context.Context, groupID int64) ([]core.CreditRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT es.user_id, es.share_cents,
		       COALESCE(pay.cents, 0), COALESCE(contrib.cents, 0)
		FROM expense_shares es
		JOIN expenses e ON es.expense_id = e.id
		LEFT JOIN (
			SELECT expense_id, user_id, SUM(amount_cents) AS cents
			FROM expense_payments GROUP BY expense_id, user_id
		) pay ON pay.expense_id = es.expense_id AND pay.user_id = es.user_id
		LEFT JOIN (
			SELECT expense_id, user_id, SUM(amount_cents) AS cents
			FROM expense_contributions GROUP BY expense_id, user_id
		) contrib ON contrib.expense_id = es.expense_id AND contrib.user_id = es.user_id
		WHERE e.group_id = ?
		ORDER BY es.expense_id, es.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list credit rows: %w", err)
	}
	defer rows.Close()

	var credits []core.CreditRow
	for rows.Next() {
		var row core.CreditRow
		if err := rows.Scan(&row.UserID, &row.Share.Cents, &row.Paid.Cents, &row.Contributed.Cents); err != nil {
			return nil, fmt.Errorf("scan credit row: %w", err)
		}
		credits = append(credits, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit rows: %w", err)
	}
	return credits, nil
}

func (r *Repository) sumByUser(ctx context.Context, query string, groupID int64) (map[int64]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("sum by user: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]core.Money)
	for rows.Next() {
		var userID, cents int64
		if err := rows.Scan(&userID, &cents); err != nil {
			return nil, fmt.Errorf("scan sum: %w", err)
		}
		sums[userID] = core.FromCents(cents)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sums: %w", err)
	}
	return sums, nil
}
