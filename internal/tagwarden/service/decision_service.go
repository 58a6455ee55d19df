package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tagwarden/server/internal/apperr"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

var (
	ErrMissingScanner = apperr.New(apperr.CodeValidation, "scanner is required")
	ErrMissingToken   = apperr.New(apperr.CodeValidation, "token is required")
)

// DecisionService answers "may this token pass this scanner now?". Every call
// re-reads the datastore; nothing is cached between calls.
type DecisionService struct {
	tx store.TxRunner
	options
}

func NewDecisionService(tx store.TxRunner, opts ...Option) *DecisionService {
	return &DecisionService{tx: tx, options: buildOptions(opts)}
}

// Decide runs the decision chain for one presented token. Denials come back
// as a Decision with Granted=false; the error is non-nil only for invalid
// input (VALIDATION_ERROR) or a datastore failure (INTERNAL_ERROR), and in
// that case no decision was made.
func (s *DecisionService) Decide(ctx context.Context, scannerID, rawTokenUID string) (types.Decision, error) {
	scannerID = strings.TrimSpace(scannerID)
	raw := strings.TrimSpace(rawTokenUID)
	if scannerID == "" {
		return types.Decision{}, ErrMissingScanner
	}
	if raw == "" {
		return types.Decision{}, ErrMissingToken
	}

	start := time.Now()
	now := s.now().UTC()
	ctx = s.log.WithScannerID(ctx, scannerID)

	var d types.Decision
	err := s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		d = types.Decision{
			ScannerID: scannerID,
			TokenUID:  strings.ToUpper(raw),
			DecidedAt: now,
		}
		if err := s.evaluate(ctx, tx, &d, now); err != nil {
			return err
		}
		return s.record(ctx, tx, d, raw)
	})
	if err != nil {
		s.metrics.ObserveDecision("error", time.Since(start))
		s.log.Error(s.log.WithFields(ctx, apperr.Dump(err).Fields()), "access.decision_failed", err)
		return types.Decision{}, apperr.Wrap(apperr.CodeInternal, err, "access decision failed")
	}

	s.metrics.ObserveDecision(string(d.Outcome), time.Since(start))
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"outcome":   d.Outcome,
		"granted":   d.Granted,
		"token_uid": d.TokenUID,
		"token_id":  d.TokenID,
	}), "access.decision")
	return d, nil
}

// evaluate walks scanner, token, user and grant, stopping at the first
// failing step. Only lookup errors other than not-found abort the chain.
func (s *DecisionService) evaluate(ctx context.Context, tx store.Tx, d *types.Decision, now time.Time) error {
	scanner, err := tx.Scanners.GetScanner(ctx, d.ScannerID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		deny(d, types.OutcomeScannerNotFound)
		return nil
	case err != nil:
		return err
	}

	token, err := tx.Tokens.GetTokenByUID(ctx, d.TokenUID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !scanner.Active {
			deny(d, types.OutcomeScannerDisabled)
		} else {
			deny(d, types.OutcomeTokenNotFound)
		}
		return nil
	case err != nil:
		return err
	}
	d.TokenID = token.ID

	if !scanner.Active {
		deny(d, types.OutcomeScannerDisabled)
		return nil
	}
	if !token.Active {
		deny(d, types.OutcomeTokenDisabled)
		return nil
	}

	user, err := tx.Users.GetUser(ctx, token.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		deny(d, types.OutcomeUserNotFound)
		return nil
	case err != nil:
		return err
	}
	d.UserID = user.ID
	d.UserEmail = user.Email

	if !user.Active {
		deny(d, types.OutcomeUserDisabled)
		return nil
	}

	grant, err := tx.Grants.GetGrant(ctx, user.ID, scanner.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		deny(d, types.OutcomeNoAccess)
		return nil
	case err != nil:
		return err
	}

	if !grant.Active {
		deny(d, types.OutcomeAccessDisabled)
		return nil
	}
	if grant.Expired(now) {
		deny(d, types.OutcomeAccessExpired)
		return nil
	}

	d.Granted = true
	d.Outcome = types.OutcomeGranted
	if grant.ExpiresAt != nil {
		until := grant.ExpiresAt.UTC()
		d.Until = &until
	}
	return nil
}

// record writes the audit entry and, on a grant, the token's last-used time.
func (s *DecisionService) record(ctx context.Context, tx store.Tx, d types.Decision, raw string) error {
	if !d.Outcome.Logged() {
		return nil
	}
	if err := tx.AuditLog.AppendAccessLog(ctx, store.AccessLogRecord{
		TokenID:      d.TokenID,
		ScannerID:    d.ScannerID,
		Granted:      d.Granted,
		RawUID:       raw,
		DenialReason: d.DenyReason,
		CreatedAt:    d.DecidedAt,
	}); err != nil {
		return err
	}
	if d.Granted {
		return tx.Tokens.TouchTokenLastUsed(ctx, d.TokenID, d.DecidedAt)
	}
	return nil
}

func deny(d *types.Decision, o types.Outcome) {
	d.Granted = false
	d.Outcome = o
	d.DenyReason = o.DenyReason()
}
