package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tagwarden/server/internal/apperr"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
	"github.com/tagwarden/server/internal/validation"
)

type NewUser struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Role        string `json:"role" validate:"required,oneof=root admin user"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

type NewScanner struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"required,max=120"`
	Location    string `json:"location" validate:"max=120"`
	Description string `json:"description" validate:"max=500"`
	Direction   string `json:"direction" validate:"omitempty,oneof=entry exit both"`
}

type NewToken struct {
	UID    string `json:"uid" validate:"required,max=64"`
	UserID string `json:"user_id" validate:"required"`
	Name   string `json:"name" validate:"max=120"`
}

type NewGrant struct {
	UserID    string     `json:"user_id" validate:"required"`
	ScannerID string     `json:"scanner_id" validate:"required"`
	GrantedBy string     `json:"granted_by" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

var uidPattern = regexp.MustCompile(`^[0-9A-F]+$`)

// NormalizeUID upper-cases a card uid and drops the separators readers and
// people commonly put in it ("a1:b2:c3:d4", "A1 B2 C3 D4").
func NormalizeUID(raw string) (string, error) {
	uid := strings.ToUpper(strings.TrimSpace(raw))
	uid = strings.NewReplacer(":", "", " ", "", "-", "").Replace(uid)
	if !uidPattern.MatchString(uid) {
		return "", apperr.New(apperr.CodeValidation, "uid must be hexadecimal").
			WithDetails(map[string]string{"uid": "must be hexadecimal"})
	}
	return uid, nil
}

// AdminService provisions users, scanners, tokens and grants. It backs the
// operator CLI; the decision path never goes through it.
type AdminService struct {
	tx   store.TxRunner
	logs store.AuditLogReader
	options
}

func NewAdminService(tx store.TxRunner, logs store.AuditLogReader, opts ...Option) *AdminService {
	return &AdminService{tx: tx, logs: logs, options: buildOptions(opts)}
}

// ── Users ──

func (s *AdminService) CreateUser(ctx context.Context, in NewUser) (store.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validation.Struct(&in); err != nil {
		return store.User{}, err
	}

	now := s.now().UTC()
	u := store.User{
		ID:          uuid.NewString(),
		Email:       in.Email,
		Role:        types.Role(in.Role),
		DisplayName: in.DisplayName,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Users.CreateUser(ctx, u)
	})
	if err != nil {
		return store.User{}, mapStoreErr("user", err)
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"user_id": u.ID, "role": u.Role}), "admin.user_created")
	return u, nil
}

func (s *AdminService) SetUserActive(ctx context.Context, id string, active bool) error {
	return s.setActive(ctx, "user", id, active, func(ctx context.Context, tx store.Tx, at time.Time) error {
		return tx.Users.SetUserActive(ctx, id, active, at)
	})
}

// ── Scanners ──

func (s *AdminService) CreateScanner(ctx context.Context, in NewScanner) (store.Scanner, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return store.Scanner{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Direction == "" {
		in.Direction = string(types.DirectionBoth)
	}

	now := s.now().UTC()
	sc := store.Scanner{
		ID:          in.ID,
		Name:        in.Name,
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
		Direction:   types.Direction(in.Direction),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Scanners.CreateScanner(ctx, sc)
	})
	if err != nil {
		return store.Scanner{}, mapStoreErr("scanner", err)
	}
	s.log.Info(s.log.WithScannerID(ctx, sc.ID), "admin.scanner_created")
	return sc, nil
}

func (s *AdminService) SetScannerActive(ctx context.Context, id string, active bool) error {
	return s.setActive(ctx, "scanner", id, active, func(ctx context.Context, tx store.Tx, at time.Time) error {
		return tx.Scanners.SetScannerActive(ctx, id, active, at)
	})
}

// ── Tokens ──

func (s *AdminService) CreateToken(ctx context.Context, in NewToken) (store.Token, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if err := validation.Struct(&in); err != nil {
		return store.Token{}, err
	}
	uid, err := NormalizeUID(in.UID)
	if err != nil {
		return store.Token{}, err
	}

	now := s.now().UTC()
	t := store.Token{
		ID:        uuid.NewString(),
		UID:       uid,
		UserID:    in.UserID,
		Name:      strings.TrimSpace(in.Name),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := requireUser(ctx, tx, t.UserID); err != nil {
			return err
		}
		return tx.Tokens.CreateToken(ctx, t)
	})
	if err != nil {
		return store.Token{}, mapStoreErr("token", err)
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"token_id": t.ID, "user_id": t.UserID}), "admin.token_created")
	return t, nil
}

func (s *AdminService) SetTokenActive(ctx context.Context, id string, active bool) error {
	return s.setActive(ctx, "token", id, active, func(ctx context.Context, tx store.Tx, at time.Time) error {
		return tx.Tokens.SetTokenActive(ctx, id, active, at)
	})
}

// ── Grants ──

// CreateGrant authorises a user at a scanner. The granting user must be an
// active admin or root.
func (s *AdminService) CreateGrant(ctx context.Context, in NewGrant) (store.Grant, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.ScannerID = strings.TrimSpace(in.ScannerID)
	in.GrantedBy = strings.TrimSpace(in.GrantedBy)
	if err := validation.Struct(&in); err != nil {
		return store.Grant{}, err
	}

	now := s.now().UTC()
	g := store.Grant{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		ScannerID: in.ScannerID,
		GrantedBy: in.GrantedBy,
		GrantedAt: now,
		Active:    true,
		UpdatedAt: now,
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC()
		g.ExpiresAt = &exp
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		granter, err := tx.Users.GetUser(ctx, g.GrantedBy)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "granting user not found")
		}
		if err != nil {
			return err
		}
		if !granter.Active || !granter.Role.AtLeast(types.RoleAdmin) {
			return apperr.New(apperr.CodeForbidden, "granting user must be an active admin or root")
		}
		if err := requireUser(ctx, tx, g.UserID); err != nil {
			return err
		}
		if _, err := tx.Scanners.GetScanner(ctx, g.ScannerID); errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.CodeNotFound, "scanner not found")
		} else if err != nil {
			return err
		}
		return tx.Grants.CreateGrant(ctx, g)
	})
	if err != nil {
		return store.Grant{}, mapStoreErr("grant", err)
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"grant_id":   g.ID,
		"user_id":    g.UserID,
		"scanner_id": g.ScannerID,
		"granted_by": g.GrantedBy,
	}), "admin.grant_created")
	return g, nil
}

func (s *AdminService) SetGrantActive(ctx context.Context, id string, active bool) error {
	return s.setActive(ctx, "grant", id, active, func(ctx context.Context, tx store.Tx, at time.Time) error {
		return tx.Grants.SetGrantActive(ctx, id, active, at)
	})
}

// ── Audit log ──

func (s *AdminService) ListAccessLog(ctx context.Context, f store.AccessLogFilter) ([]store.AccessLogRecord, error) {
	f.ScannerID = strings.TrimSpace(f.ScannerID)
	recs, err := s.logs.ListAccessLog(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "list access log")
	}
	return recs, nil
}

func (s *AdminService) setActive(
	ctx context.Context,
	what, id string,
	active bool,
	fn func(ctx context.Context, tx store.Tx, at time.Time) error,
) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.New(apperr.CodeValidation, what+" id is required")
	}
	at := s.now().UTC()
	if err := s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, tx, at)
	}); err != nil {
		return mapStoreErr(what, err)
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"id": id, "active": active}), "admin."+what+"_updated")
	return nil
}

func requireUser(ctx context.Context, tx store.Tx, id string) error {
	_, err := tx.Users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.New(apperr.CodeNotFound, "user not found")
	}
	return err
}

// mapStoreErr turns store sentinels into typed errors. Errors that are
// already typed pass through.
func mapStoreErr(what string, err error) error {
	if apperr.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, what+" not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.CodeConflict, err, what+" already exists")
	default:
		return apperr.Wrap(apperr.CodeInternal, err, what+" write failed")
	}
}
