package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/tagwarden/server/internal/apperr"
	"github.com/tagwarden/server/internal/tagwarden/service"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

// ── Access ───────────────────────────────────────────────────────────────────

var outcomeStatus = map[types.Outcome]int{
	types.OutcomeGranted:         http.StatusOK,
	types.OutcomeTokenNotFound:   http.StatusNotFound,
	types.OutcomeUserNotFound:    http.StatusNotFound,
	types.OutcomeScannerNotFound: http.StatusNotFound,
	types.OutcomeTokenDisabled:   http.StatusForbidden,
	types.OutcomeScannerDisabled: http.StatusForbidden,
	types.OutcomeUserDisabled:    http.StatusForbidden,
	types.OutcomeAccessDisabled:  http.StatusForbidden,
	types.OutcomeAccessExpired:   http.StatusForbidden,
	types.OutcomeNoAccess:        http.StatusForbidden,
}

// statusForOutcome maps a decision outcome to its HTTP status. Anything
// unmapped fails closed as 500.
func statusForOutcome(o types.Outcome) int {
	if status, ok := outcomeStatus[o]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// accessResponse renders a decision. An unknown scanner is reported in the
// error shape; every other outcome carries data about what was resolved.
func accessResponse(d types.Decision, now time.Time) (int, types.AccessCheckResponse) {
	status := statusForOutcome(d.Outcome)
	ts := now.UTC().Format(time.RFC3339)

	if d.Outcome == types.OutcomeScannerNotFound {
		return status, types.AccessCheckResponse{
			Access:    types.AccessInfo{Granted: false},
			Code:      string(d.Outcome),
			Error:     d.DenyReason,
			Timestamp: ts,
		}
	}

	info := types.AccessInfo{Granted: d.Granted}
	if d.Granted {
		if d.Until != nil {
			info.Until = d.Until.UTC().Format(time.RFC3339)
		}
	} else {
		info.DenyReason = d.DenyReason
	}

	return status, types.AccessCheckResponse{
		Access: info,
		Data: &types.AccessData{
			Token:   d.TokenUID,
			User:    d.UserEmail,
			Scanner: d.ScannerID,
		},
		Code:      string(d.Outcome),
		Timestamp: ts,
	}
}

// errorResponse renders a request that produced no decision. Internal
// messages never reach the body.
func errorResponse(err error, now time.Time) (int, types.AccessCheckResponse) {
	code := apperr.CodeOf(err)
	meta := apperr.MetadataFor(code)

	body := types.AccessCheckResponse{
		Access:    types.AccessInfo{Granted: false},
		Code:      string(code),
		Error:     apperr.PublicMessage(err),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if errors.Is(err, service.ErrScannerNotFound) {
		body.Code = string(types.OutcomeScannerNotFound)
	}
	return meta.HTTPStatus, body
}
