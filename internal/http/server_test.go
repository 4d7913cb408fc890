package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"splitledger/internal/services"
	"splitledger/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir, err := os.MkdirTemp("", "splitledger-http-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	repo, err := storage.NewRepository(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", services.NewLedgerService(repo, nil))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// do sends a JSON request as the given user and decodes the response into
// out when out is non-nil.
func do(t *testing.T, ts *httptest.Server, method, path string, userID int64, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response for %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func createUser(t *testing.T, ts *httptest.Server, name, email string) int64 {
	t.Helper()
	var user struct {
		ID int64 `json:"id"`
	}
	if status := do(t, ts, http.MethodPost, "/api/users", 0, map[string]string{"name": name, "email": email}, &user); status != http.StatusOK {
		t.Fatalf("create user %s: status %d", name, status)
	}
	return user.ID
}

func setupGroup(t *testing.T, ts *httptest.Server) (int64, int64, int64) {
	t.Helper()
	alice := createUser(t, ts, "Alice", "alice@example.com")
	bob := createUser(t, ts, "Bob", "bob@example.com")

	var group struct {
		ID int64 `json:"id"`
	}
	if status := do(t, ts, http.MethodPost, "/api/groups", alice, map[string]string{"group_name": "Trip"}, &group); status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}
	if status := do(t, ts, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", group.ID), bob, nil, nil); status != http.StatusOK {
		t.Fatalf("join group: status %d", status)
	}
	return group.ID, alice, bob
}

func TestRequesterHeaderRequired(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Error string `json:"error"`
	}
	status := do(t, ts, http.MethodGet, "/api/groups", 0, nil, &body)
	if status != http.StatusUnauthorized || body.Error != "missing_user_id" {
		t.Fatalf("got %d %q, want 401 missing_user_id", status, body.Error)
	}
}

func TestExpenseLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	groupID, alice, bob := setupGroup(t, ts)
	base := fmt.Sprintf("/api/groups/%d", groupID)

	var created struct {
		ID int64 `json:"id"`
	}
	status := do(t, ts, http.MethodPost, base+"/expenses", alice, map[string]any{
		"title":       "Dinner",
		"amount":      "100.00",
		"split_among": []int64{alice, bob},
	}, &created)
	if status != http.StatusCreated || created.ID == 0 {
		t.Fatalf("add expense: status %d id %d", status, created.ID)
	}

	var expenses []struct {
		Title  string `json:"title"`
		Amount string `json:"amount"`
		PaidBy int64  `json:"paid_by"`
		Shares []struct {
			UserID  int64  `json:"user_id"`
			Pending string `json:"pending_amount"`
		} `json:"shares"`
	}
	if status := do(t, ts, http.MethodGet, base+"/expenses", bob, nil, &expenses); status != http.StatusOK {
		t.Fatalf("list expenses: status %d", status)
	}
	if len(expenses) != 1 || expenses[0].Amount != "100.00" || expenses[0].PaidBy != alice {
		t.Fatalf("unexpected expenses %+v", expenses)
	}
	for _, share := range expenses[0].Shares {
		want := "0.00"
		if share.UserID == bob {
			want = "50.00"
		}
		if share.Pending != want {
			t.Fatalf("user %d pending %q, want %q", share.UserID, share.Pending, want)
		}
	}

	// Bob cannot delete Alice's expense.
	var errBody struct {
		Error string `json:"error"`
	}
	path := fmt.Sprintf("%s/expenses/%d", base, created.ID)
	if status := do(t, ts, http.MethodDelete, path, bob, nil, &errBody); status != http.StatusForbidden || errBody.Error != "forbidden_only_payer_can_delete" {
		t.Fatalf("non-payer delete: %d %q", status, errBody.Error)
	}

	var deleted struct {
		Status string `json:"status"`
	}
	if status := do(t, ts, http.MethodDelete, path, alice, nil, &deleted); status != http.StatusOK || deleted.Status != "deleted" {
		t.Fatalf("payer delete: %d %+v", status, deleted)
	}
}

func TestValidationErrorKinds(t *testing.T) {
	ts := newTestServer(t)
	groupID, alice, bob := setupGroup(t, ts)
	base := fmt.Sprintf("/api/groups/%d", groupID)

	carol := createUser(t, ts, "Carol", "carol@example.com")

	tests := []struct {
		name       string
		requester  int64
		body       map[string]any
		wantStatus int
		wantKind   string
	}{
		{
			name:       "missing fields",
			requester:  alice,
			body:       map[string]any{"amount": "10.00", "split_among": []int64{alice}},
			wantStatus: http.StatusBadRequest,
			wantKind:   "missing_fields",
		},
		{
			name:       "outsider requester",
			requester:  carol,
			body:       map[string]any{"title": "Gas", "amount": "10.00", "split_among": []int64{alice}},
			wantStatus: http.StatusForbidden,
			wantKind:   "not_authorized",
		},
		{
			name:      "share total mismatch",
			requester: alice,
			body: map[string]any{
				"title":  "Gas",
				"amount": "10.00",
				"shares": []map[string]any{
					{"user_id": alice, "amount": "5.00"},
					{"user_id": bob, "amount": "4.90"},
				},
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   "share_total_mismatch",
		},
		{
			name:      "duplicate share entry",
			requester: alice,
			body: map[string]any{
				"title":  "Gas",
				"amount": "10.00",
				"shares": []map[string]any{
					{"user_id": alice, "amount": "5.00"},
					{"user_id": alice, "amount": "5.00"},
				},
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   "duplicate_share_entry",
		},
		{
			name:       "split includes outsider",
			requester:  alice,
			body:       map[string]any{"title": "Gas", "amount": "10.00", "split_among": []int64{alice, carol}},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_split_members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Error string `json:"error"`
			}
			status := do(t, ts, http.MethodPost, base+"/expenses", tt.requester, tt.body, &body)
			if status != tt.wantStatus || body.Error != tt.wantKind {
				t.Fatalf("got %d %q, want %d %q", status, body.Error, tt.wantStatus, tt.wantKind)
			}
		})
	}
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	groupID, alice, bob := setupGroup(t, ts)
	base := fmt.Sprintf("/api/groups/%d", groupID)

	var created struct {
		ID int64 `json:"id"`
	}
	if status := do(t, ts, http.MethodPost, base+"/expenses", alice, map[string]any{
		"title":       "Hotel",
		"amount":      "100.00",
		"split_among": []int64{alice, bob},
	}, &created); status != http.StatusCreated {
		t.Fatalf("add expense: status %d", status)
	}
	payPath := fmt.Sprintf("%s/expenses/%d/payments", base, created.ID)

	var errBody struct {
		Error     string `json:"error"`
		Remaining string `json:"remaining"`
	}

	// Alice cannot pay on Bob's behalf.
	status := do(t, ts, http.MethodPost, payPath, alice, map[string]any{"user_id": bob, "amount": "10.00"}, &errBody)
	if status != http.StatusForbidden || errBody.Error != "forbidden_only_self_can_pay" {
		t.Fatalf("pay for another: %d %q", status, errBody.Error)
	}

	var payment struct {
		ID     int64  `json:"id"`
		Amount string `json:"amount"`
	}
	status = do(t, ts, http.MethodPost, payPath, bob, map[string]any{"user_id": bob, "amount": "30.00"}, &payment)
	if status != http.StatusCreated || payment.Amount != "30.00" {
		t.Fatalf("record payment: %d %+v", status, payment)
	}

	// 20.00 remains; 25.00 is rejected and reports the remainder.
	status = do(t, ts, http.MethodPost, payPath, bob, map[string]any{"user_id": bob, "amount": "25.00"}, &errBody)
	if status != http.StatusBadRequest || errBody.Error != "amount_exceeds_remaining" || errBody.Remaining != "20.00" {
		t.Fatalf("overpayment: %d %+v", status, errBody)
	}

	// Mark the rest of Bob's balance paid with no explicit amount.
	markPath := fmt.Sprintf("%s/balances/%d/mark-paid", base, bob)
	var marked struct {
		Payments []struct {
			ExpenseID int64  `json:"expense_id"`
			Amount    string `json:"amount"`
		} `json:"payments"`
		Total string `json:"total"`
	}
	status = do(t, ts, http.MethodPost, markPath, bob, nil, &marked)
	if status != http.StatusCreated || marked.Total != "20.00" || len(marked.Payments) != 1 {
		t.Fatalf("mark paid: %d %+v", status, marked)
	}

	status = do(t, ts, http.MethodPost, markPath, bob, nil, &errBody)
	if status != http.StatusBadRequest || errBody.Error != "nothing_pending" {
		t.Fatalf("nothing pending: %d %q", status, errBody.Error)
	}
}

func TestBalancesOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	groupID, alice, bob := setupGroup(t, ts)
	base := fmt.Sprintf("/api/groups/%d", groupID)

	if status := do(t, ts, http.MethodPost, base+"/expenses", alice, map[string]any{
		"title":       "Tickets",
		"amount":      "80.00",
		"split_among": []int64{alice, bob},
	}, nil); status != http.StatusCreated {
		t.Fatalf("add expense: status %d", status)
	}

	var result struct {
		Balances []struct {
			UserID     int64  `json:"user_id"`
			NetBalance string `json:"net_balance"`
		} `json:"balances"`
		Settlements []struct {
			FromUserID int64  `json:"from_user_id"`
			ToUserID   int64  `json:"to_user_id"`
			Amount     string `json:"amount"`
		} `json:"settlements"`
	}
	if status := do(t, ts, http.MethodGet, base+"/balances", bob, nil, &result); status != http.StatusOK {
		t.Fatalf("balances: status %d", status)
	}
	if len(result.Settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %+v", result.Settlements)
	}
	st := result.Settlements[0]
	if st.FromUserID != bob || st.ToUserID != alice || st.Amount != "40.00" {
		t.Fatalf("unexpected settlement %+v", st)
	}
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t)
	id := createUser(t, ts, "Alice", "alice@example.com")

	var user struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	path := fmt.Sprintf("/api/users/%d", id)
	if status := do(t, ts, http.MethodGet, path, 0, nil, &user); status != http.StatusOK || user.Email != "alice@example.com" {
		t.Fatalf("get user: %d %+v", status, user)
	}

	var errBody struct {
		Error string `json:"error"`
	}
	if status := do(t, ts, http.MethodGet, "/api/users/9999", 0, nil, &errBody); status != http.StatusNotFound || errBody.Error != "user_not_found" {
		t.Fatalf("missing user: %d %q", status, errBody.Error)
	}
}

func TestDuplicateEmailConflict(t *testing.T) {
	ts := newTestServer(t)
	createUser(t, ts, "Alice", "alice@example.com")

	var body struct {
		Error string `json:"error"`
	}
	status := do(t, ts, http.MethodPost, "/api/users", 0, map[string]string{"name": "Other", "email": "alice@example.com"}, &body)
	if status != http.StatusConflict || body.Error != "email_in_use" {
		t.Fatalf("duplicate email: %d %q", status, body.Error)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}
