package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"splitledger/internal/core"
)

type (
	// ShareRow is one share joined with the name of its holder and the
	// sums of that holder's payments and contributions against the same
	// expense. Credit is derived from it, never stored.
	ShareRow struct {
		UserID      int64
		Name        string
		Share       core.Money
		Paid        core.Money
		Contributed core.Money
	}

	ContributionRow struct {
		UserID int64
		Name   string
		Amount core.Money
	}

	// ExpenseDetail is one expense with everything its listing needs.
	ExpenseDetail struct {
		Expense       core.Expense
		PaidByName    string
		Shares        []ShareRow
		Contributions []ContributionRow
	}
)

// CreateExpense writes the expense with all its shares and contributions in
// one transaction; a failure partway leaves no rows behind.
func (r *Repository) CreateExpense(ctx context.Context, exp core.Expense, shares, contributions []core.ShareEntry) (int64, error) {
	var expenseID int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO expenses (group_id, title, amount_cents, paid_by, created_at) VALUES (?, ?, ?, ?, ?)",
			exp.GroupID, exp.Title, exp.Amount.Cents, exp.PaidBy, time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		expenseID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("expense id: %w", err)
		}

		for _, s := range shares {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO expense_shares (expense_id, user_id, share_cents) VALUES (?, ?, ?)",
				expenseID, s.UserID, s.Amount.Cents,
			); err != nil {
				return fmt.Errorf("insert share: %w", err)
			}
		}

		for _, c := range contributions {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO expense_contributions (expense_id, user_id, amount_cents) VALUES (?, ?, ?)",
				expenseID, c.UserID, c.Amount.Cents,
			); err != nil {
				return fmt.Errorf("insert contribution: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", expenseID,
		"group_id", exp.GroupID,
		"amount_cents", exp.Amount.Cents,
		"shares", len(shares),
		"contributions", len(contributions))
	return expenseID, nil
}

func (r *Repository) GetExpense(ctx context.Context, groupID, expenseID int64) (core.Expense, error) {
	var exp core.Expense
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, group_id, title, amount_cents, paid_by, created_at FROM expenses WHERE id = ? AND group_id = ?",
		expenseID, groupID,
	).Scan(&exp.ID, &exp.GroupID, &exp.Title, &exp.Amount.Cents, &exp.PaidBy, &createdAt)
	if err == sql.ErrNoRows {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	exp.CreatedAt = time.Unix(createdAt, 0).UTC()
	return exp, nil
}

// DeleteExpense removes the expense and cascades over its payments,
// contributions and shares in one transaction.
func (r *Repository) DeleteExpense(ctx context.Context, expenseID int64) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM expense_payments WHERE expense_id = ?",
			"DELETE FROM expense_contributions WHERE expense_id = ?",
			"DELETE FROM expense_shares WHERE expense_id = ?",
			"DELETE FROM expenses WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, stmt, expenseID); err != nil {
				return fmt.Errorf("cascade delete: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", expenseID)
	return nil
}

// ListExpenseDetails returns the group's expenses newest first, each with
// its shares (joined with per-user payment and contribution sums) and its
// contribution rows.
func (r *Repository) ListExpenseDetails(ctx context.Context, groupID int64) ([]ExpenseDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.group_id, e.title, e.amount_cents, e.paid_by, e.created_at, u.name
		FROM expenses e
		JOIN users u ON e.paid_by = u.id
		WHERE e.group_id = ?
		ORDER BY e.created_at DESC, e.id DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var details []ExpenseDetail
	index := make(map[int64]int)
	for rows.Next() {
		var d ExpenseDetail
		var createdAt int64
		if err := rows.Scan(&d.Expense.ID, &d.Expense.GroupID, &d.Expense.Title,
			&d.Expense.Amount.Cents, &d.Expense.PaidBy, &createdAt, &d.PaidByName); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		d.Expense.CreatedAt = time.Unix(createdAt, 0).UTC()
		index[d.Expense.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	if len(details) == 0 {
		return nil, nil
	}

	shareRows, err := r.db.QueryContext(ctx, `
		SELECT es.expense_id, es.user_id, u.name, es.share_cents,
		       COALESCE(pay.cents, 0), COALESCE(contrib.cents, 0)
		FROM expense_shares es
		JOIN expenses e ON es.expense_id = e.id
		JOIN users u ON es.user_id = u.id
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
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var expenseID int64
		var s ShareRow
		if err := shareRows.Scan(&expenseID, &s.UserID, &s.Name,
			&s.Share.Cents, &s.Paid.Cents, &s.Contributed.Cents); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			details[i].Shares = append(details[i].Shares, s)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}

	contribRows, err := r.db.QueryContext(ctx, `
		SELECT ec.expense_id, ec.user_id, u.name, ec.amount_cents
		FROM expense_contributions ec
		JOIN expenses e ON ec.expense_id = e.id
		JOIN users u ON ec.user_id = u.id
		WHERE e.group_id = ?
		ORDER BY ec.expense_id, ec.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer contribRows.Close()

	for contribRows.Next() {
		var expenseID int64
		var c ContributionRow
		if err := contribRows.Scan(&expenseID, &c.UserID, &c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			details[i].Contributions = append(details[i].Contributions, c)
		}
	}
	if err := contribRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contributions: %w", err)
	}

	return details, nil
}
