package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"splitledger/internal/core"
	"splitledger/internal/log"
)

type errorBody struct {
	Error     string      `json:"error"`
	Remaining *core.Money `json:"remaining,omitempty"`
}

// errorKinds maps sentinel errors to their stable wire kind and status.
var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{core.ErrMissingFields, "missing_fields", http.StatusBadRequest},
	{core.ErrInvalidAmount, "invalid_amount", http.StatusBadRequest},
	{core.ErrNotAuthorized, "not_authorized", http.StatusForbidden},
	{core.ErrGroupNotFound, "group_not_found", http.StatusNotFound},
	{core.ErrUserNotFound, "user_not_found", http.StatusNotFound},
	{core.ErrEmailInUse, "email_in_use", http.StatusConflict},
	{core.ErrExpenseNotFound, "expense_not_found", http.StatusNotFound},
	{core.ErrOnlyPayerCanDelete, "forbidden_only_payer_can_delete", http.StatusForbidden},
	{core.ErrShareTotalMismatch, "share_total_mismatch", http.StatusBadRequest},
	{core.ErrContributionTotalMismatch, "contribution_total_mismatch", http.StatusBadRequest},
	{core.ErrInvalidSplitMembers, "invalid_split_members", http.StatusBadRequest},
	{core.ErrDuplicateShareEntry, "duplicate_share_entry", http.StatusBadRequest},
	{core.ErrDuplicateContributionEntry, "duplicate_contribution_entry", http.StatusBadRequest},
	{core.ErrPayerNotInGroup, "payer_not_in_group", http.StatusBadRequest},
	{core.ErrUserNotInGroup, "user_not_in_group", http.StatusBadRequest},
	{core.ErrUserNotInExpense, "user_not_in_expense", http.StatusBadRequest},
	{core.ErrOnlySelfCanPay, "forbidden_only_self_can_pay", http.StatusForbidden},
	{core.ErrOnlySelfCanMarkPaid, "forbidden_only_self_can_mark_paid", http.StatusForbidden},
	{core.ErrShareAlreadySettled, "share_already_settled", http.StatusBadRequest},
	{core.ErrAmountExceedsRemaining, "amount_exceeds_remaining", http.StatusBadRequest},
	{core.ErrNothingPending, "nothing_pending", http.StatusBadRequest},
}

// writeError renders domain errors with their stable kind; anything
// unmapped is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorKinds {
		if !errors.Is(err, m.err) {
			continue
		}
		body := errorBody{Error: m.kind}
		var exceeds *core.ExceedsRemainingError
		if errors.As(err, &exceeds) {
			body.Remaining = &exceeds.Remaining
		}
		writeJSON(w, m.status, body)
		return
	}

	slog.ErrorContext(r.Context(), "Unhandled error",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldError, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Money fields reject negatives during decode; surface those as
		// the amount error rather than a generic parse failure.
		if errors.Is(err, core.ErrInvalidAmount) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_amount"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_json"})
		return false
	}
	return true
}

// decodeJSONOptional is decodeJSON for endpoints whose body may be empty.
func decodeJSONOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, core.ErrInvalidAmount) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_amount"})
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_json"})
	return false
}

// requesterID reads the caller's identity from the X-User-ID header.
func requesterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing_user_id"})
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_path_id"})
		return 0, false
	}
	return id, true
}
