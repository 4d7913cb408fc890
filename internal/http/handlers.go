package http

import (
	"net/http"

	"splitledger/internal/core"
	"splitledger/internal/services"
)

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.ledger.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := s.ledger.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}

	groups, err := s.ledger.ListGroups(r.Context(), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

type createGroupRequest struct {
	GroupName string `json:"group_name"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	groupID, err := s.ledger.CreateGroup(r.Context(), requester, req.GroupName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         groupID,
		"group_name": req.GroupName,
		"created_by": requester,
	})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	joined, err := s.ledger.JoinGroup(r.Context(), requester, groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := "already_joined"
	if joined {
		status = "joined"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleGroupMembers(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := s.ledger.GroupMembers(r.Context(), requester, groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), requester, groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

type shareEntryRequest struct {
	UserID int64      `json:"user_id"`
	Amount core.Money `json:"amount"`
}

type addExpenseRequest struct {
	Title        string              `json:"title"`
	Amount       core.Money          `json:"amount"`
	PaidBy       int64               `json:"paid_by"`
	SplitAmong   []int64             `json:"split_among"`
	Shares       []shareEntryRequest `json:"shares"`
	Contributors []shareEntryRequest `json:"contributors"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req addExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expenseID, err := s.ledger.AddExpense(r.Context(), requester, groupID, services.AddExpenseInput{
		Title:        req.Title,
		Amount:       req.Amount,
		PaidBy:       req.PaidBy,
		SplitAmong:   req.SplitAmong,
		Shares:       shareEntries(req.Shares),
		Contributors: shareEntries(req.Contributors),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": expenseID})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "eid")
	if !ok {
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), requester, groupID, expenseID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := s.ledger.GroupBalances(r.Context(), requester, groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type recordPaymentRequest struct {
	UserID int64       `json:"user_id"`
	Amount *core.Money `json:"amount"`
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "eid")
	if !ok {
		return
	}
	var req recordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 || req.Amount == nil {
		writeError(w, r, core.ErrMissingFields)
		return
	}

	payment, err := s.ledger.RecordPayment(r.Context(), requester, groupID, expenseID, req.UserID, *req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type markPaidRequest struct {
	Amount *core.Money `json:"amount"`
}

func (s *Server) handleMarkBalancePaid(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterID(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	var req markPaidRequest
	if !decodeJSONOptional(w, r, &req) {
		return
	}

	result, err := s.ledger.MarkBalancePaid(r.Context(), requester, groupID, userID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func shareEntries(in []shareEntryRequest) []core.ShareEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]core.ShareEntry, 0, len(in))
	for _, e := range in {
		out = append(out, core.ShareEntry{UserID: e.UserID, Amount: e.Amount})
	}
	return out
}
