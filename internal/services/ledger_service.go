// Package services implements the ledger operations exposed to transports.
// Every operation takes an explicit requester id; there is no ambient
// identity.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/storage"
)

// LedgerService orchestrates ledger operations across storage and the
// event stream. The events client is optional; publishing failures never
// fail the request.
type LedgerService struct {
	storage *storage.Repository
	events  *amqp.Client
}

func NewLedgerService(storage *storage.Repository, events *amqp.Client) *LedgerService {
	return &LedgerService{storage: storage, events: events}
}

type (
	// AddExpenseInput carries one expense creation request. Shares and
	// Contributors are the custom-split forms; when Shares is empty the
	// amount splits equally over SplitAmong, and when Contributors is
	// empty a single full-amount contribution is recorded for PaidBy
	// (or the requester when PaidBy is zero).
	AddExpenseInput struct {
		Title        string
		Amount       core.Money
		PaidBy       int64
		SplitAmong   []int64
		Shares       []core.ShareEntry
		Contributors []core.ShareEntry
	}

	ShareView struct {
		UserID        int64      `json:"user_id"`
		Name          string     `json:"name"`
		ShareAmount   core.Money `json:"share_amount"`
		PaidAmount    core.Money `json:"paid_amount"`
		PendingAmount core.Money `json:"pending_amount"`
	}

	ContributionView struct {
		UserID int64      `json:"user_id"`
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
	}

	ExpenseView struct {
		ID            int64              `json:"id"`
		Title         string             `json:"title"`
		Amount        core.Money         `json:"amount"`
		PaidBy        int64              `json:"paid_by"`
		PaidByName    string             `json:"paid_by_name"`
		CreatedAt     time.Time          `json:"date_added"`
		Shares        []ShareView        `json:"shares"`
		Contributions []ContributionView `json:"contributions"`
	}

	BalanceView struct {
		UserID           int64      `json:"user_id"`
		Name             string     `json:"name"`
		NetBalance       core.Money `json:"net_balance"`
		PaidTowardShares core.Money `json:"paid_towards_shares"`
		PendingAmount    core.Money `json:"pending_amount"`
	}

	SettlementView struct {
		FromUserID int64      `json:"from_user_id"`
		FromName   string     `json:"from_name"`
		ToUserID   int64      `json:"to_user_id"`
		ToName     string     `json:"to_name"`
		Amount     core.Money `json:"amount"`
	}

	BalancesResult struct {
		Balances    []BalanceView    `json:"balances"`
		Settlements []SettlementView `json:"settlements"`
	}

	PaymentView struct {
		ID        int64      `json:"id"`
		ExpenseID int64      `json:"expense_id"`
		Amount    core.Money `json:"amount"`
	}

	// MarkPaidResult reports every payment created by a mark-paid walk
	// and the applied total; a target exceeding the pending balance
	// shows up as Total below the requested amount.
	MarkPaidResult struct {
		Payments []PaymentView `json:"payments"`
		Total    core.Money    `json:"total"`
	}
)

// memberSet loads the group's membership once so validation closures need
// no further queries.
func (s *LedgerService) memberSet(ctx context.Context, groupID int64) (map[int64]bool, error) {
	members, err := s.storage.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	set := make(map[int64]bool, len(members))
	for _, m := range members {
		set[m.ID] = true
	}
	return set, nil
}

func (s *LedgerService) requireMember(ctx context.Context, userID, groupID int64) error {
	member, err := s.storage.IsGroupMember(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return core.ErrNotAuthorized
	}
	return nil
}

// ListExpenses returns the group's expenses with per-share applied credit
// and pending amounts.
func (s *LedgerService) ListExpenses(ctx context.Context, requesterID, groupID int64) ([]ExpenseView, error) {
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return nil, err
	}

	details, err := s.storage.ListExpenseDetails(ctx, groupID)
	if err != nil {
		return nil, err
	}

	views := make([]ExpenseView, 0, len(details))
	for _, d := range details {
		view := ExpenseView{
			ID:         d.Expense.ID,
			Title:      d.Expense.Title,
			Amount:     d.Expense.Amount,
			PaidBy:     d.Expense.PaidBy,
			PaidByName: d.PaidByName,
			CreatedAt:  d.Expense.CreatedAt,
		}
		for _, share := range d.Shares {
			view.Shares = append(view.Shares, ShareView{
				UserID:        share.UserID,
				Name:          share.Name,
				ShareAmount:   share.Share,
				PaidAmount:    core.AppliedCredit(share.Share, share.Contributed, share.Paid),
				PendingAmount: core.PendingAmount(share.Share, share.Contributed, share.Paid),
			})
		}
		for _, c := range d.Contributions {
			view.Contributions = append(view.Contributions, ContributionView{
				UserID: c.UserID,
				Name:   c.Name,
				Amount: c.Amount,
			})
		}
		if len(view.Contributions) == 0 {
			// Rows written before contributions existed carry only the
			// payer; surface them as a single full-amount contribution.
			view.Contributions = []ContributionView{{
				UserID: d.Expense.PaidBy,
				Name:   d.PaidByName,
				Amount: d.Expense.Amount,
			}}
		}
		views = append(views, view)
	}
	return views, nil
}

// AddExpense validates the split and contribution entries and writes the
// expense atomically. The primary payer is the first contribution entry.
func (s *LedgerService) AddExpense(ctx context.Context, requesterID, groupID int64, input AddExpenseInput) (int64, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return 0, core.ErrMissingFields
	}
	if err := input.Amount.Validate(); err != nil {
		return 0, err
	}
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return 0, err
	}

	members, err := s.memberSet(ctx, groupID)
	if err != nil {
		return 0, err
	}
	isMember := func(id int64) bool { return members[id] }

	shares := input.Shares
	if len(shares) > 0 {
		if err := core.ValidateShares(shares, input.Amount, isMember); err != nil {
			return 0, err
		}
	} else {
		if len(input.SplitAmong) == 0 {
			return 0, core.ErrMissingFields
		}
		for _, id := range input.SplitAmong {
			if !isMember(id) {
				return 0, core.ErrInvalidSplitMembers
			}
		}
		shares, err = core.EqualShares(input.Amount, input.SplitAmong)
		if err != nil {
			return 0, err
		}
	}

	contributions := input.Contributors
	if len(contributions) > 0 {
		if err := core.ValidateContributions(contributions, input.Amount, isMember); err != nil {
			return 0, err
		}
	} else {
		payer := input.PaidBy
		if payer == 0 {
			payer = requesterID
		}
		if !isMember(payer) {
			return 0, core.ErrPayerNotInGroup
		}
		contributions = []core.ShareEntry{{UserID: payer, Amount: input.Amount}}
	}

	expenseID, err := s.storage.CreateExpense(ctx, core.Expense{
		GroupID: groupID,
		Title:   title,
		Amount:  input.Amount,
		PaidBy:  core.PrimaryPayer(contributions),
	}, shares, contributions)
	if err != nil {
		return 0, err
	}

	event := amqp.NewLedgerEvent(amqp.EventExpenseCreated, groupID, expenseID)
	event.AmountCents = input.Amount.Cents
	s.publishEvent(ctx, event)

	return expenseID, nil
}

// DeleteExpense removes an expense and everything under it. Only the
// primary payer may delete.
func (s *LedgerService) DeleteExpense(ctx context.Context, requesterID, groupID, expenseID int64) error {
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return err
	}

	expense, err := s.storage.GetExpense(ctx, groupID, expenseID)
	if err != nil {
		return err
	}
	if expense.PaidBy != requesterID {
		return core.ErrOnlyPayerCanDelete
	}

	if err := s.storage.DeleteExpense(ctx, expenseID); err != nil {
		return err
	}

	s.publishEvent(ctx, amqp.NewLedgerEvent(amqp.EventExpenseDeleted, groupID, expenseID))
	return nil
}

// GroupBalances derives every member's position and the minimal transfers
// that would settle the group.
func (s *LedgerService) GroupBalances(ctx context.Context, requesterID, groupID int64) (BalancesResult, error) {
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return BalancesResult{}, err
	}

	members, err := s.storage.GroupMembers(ctx, groupID)
	if err != nil {
		return BalancesResult{}, err
	}
	contributed, err := s.storage.ContributionSums(ctx, groupID)
	if err != nil {
		return BalancesResult{}, err
	}
	owed, err := s.storage.OwedSums(ctx, groupID)
	if err != nil {
		return BalancesResult{}, err
	}
	credits, err := s.storage.CreditRows(ctx, groupID)
	if err != nil {
		return BalancesResult{}, err
	}

	balances := core.ComputeBalances(members, contributed, owed, credits)
	settlements := core.SimplifyDebts(balances)

	result := BalancesResult{
		Balances:    make([]BalanceView, 0, len(balances)),
		Settlements: make([]SettlementView, 0, len(settlements)),
	}
	for _, b := range balances {
		result.Balances = append(result.Balances, BalanceView{
			UserID:           b.UserID,
			Name:             b.Name,
			NetBalance:       b.NetBalance,
			PaidTowardShares: b.PaidTowardShares,
			PendingAmount:    b.Pending,
		})
	}
	for _, st := range settlements {
		result.Settlements = append(result.Settlements, SettlementView{
			FromUserID: st.FromUserID,
			FromName:   st.FromName,
			ToUserID:   st.ToUserID,
			ToName:     st.ToName,
			Amount:     st.Amount,
		})
	}
	return result, nil
}

// RecordPayment appends a payment against the user's share of an expense.
// Users record payments only for themselves.
func (s *LedgerService) RecordPayment(ctx context.Context, requesterID, groupID, expenseID, userID int64, amount core.Money) (PaymentView, error) {
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return PaymentView{}, err
	}
	if _, err := s.storage.GetExpense(ctx, groupID, expenseID); err != nil {
		return PaymentView{}, err
	}

	member, err := s.storage.IsGroupMember(ctx, userID, groupID)
	if err != nil {
		return PaymentView{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return PaymentView{}, core.ErrUserNotInGroup
	}
	if requesterID != userID {
		return PaymentView{}, core.ErrOnlySelfCanPay
	}
	if err := amount.Validate(); err != nil {
		return PaymentView{}, err
	}

	payment, err := s.storage.RecordPayment(ctx, expenseID, userID, amount)
	if err != nil {
		return PaymentView{}, err
	}

	event := amqp.NewLedgerEvent(amqp.EventPaymentRecorded, groupID, expenseID)
	event.UserID = userID
	event.AmountCents = amount.Cents
	s.publishEvent(ctx, event)

	return PaymentView{ID: payment.ID, ExpenseID: payment.ExpenseID, Amount: payment.Amount}, nil
}

// MarkBalancePaid settles the user's pending shares oldest expense first.
// A nil target clears everything pending; users settle only themselves.
func (s *LedgerService) MarkBalancePaid(ctx context.Context, requesterID, groupID, userID int64, target *core.Money) (MarkPaidResult, error) {
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return MarkPaidResult{}, err
	}

	member, err := s.storage.IsGroupMember(ctx, userID, groupID)
	if err != nil {
		return MarkPaidResult{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return MarkPaidResult{}, core.ErrUserNotInGroup
	}
	if requesterID != userID {
		return MarkPaidResult{}, core.ErrOnlySelfCanMarkPaid
	}

	payments, total, err := s.storage.MarkBalancePaid(ctx, groupID, userID, target)
	if err != nil {
		return MarkPaidResult{}, err
	}

	result := MarkPaidResult{Payments: make([]PaymentView, 0, len(payments)), Total: total}
	for _, p := range payments {
		result.Payments = append(result.Payments, PaymentView{
			ID:        p.ID,
			ExpenseID: p.ExpenseID,
			Amount:    p.Amount,
		})

		event := amqp.NewLedgerEvent(amqp.EventPaymentRecorded, groupID, p.ExpenseID)
		event.UserID = userID
		event.AmountCents = p.Amount.Cents
		s.publishEvent(ctx, event)
	}
	return result, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, event *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		// The write already committed; the export stream catches up later.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_id", event.EventID,
			"kind", event.Kind,
			"error", err)
	}
}
