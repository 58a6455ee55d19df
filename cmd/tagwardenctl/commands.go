package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/tagwarden/server/internal/tagwarden/service"
	"github.com/tagwarden/server/internal/tagwarden/store"
)

const usage = `usage: tagwardenctl [--env-file path] [-v] <command> [args]

commands:
  user add --email E --role root|admin|user [--name N]
  user disable|enable <id>
  scanner add --name N [--id ID] [--location L] [--direction entry|exit|both] [--description D]
  scanner disable|enable <id>
  token add --uid HEX --user USER_ID [--name N]
  token disable|enable <id>
  grant add --user USER_ID --scanner SCANNER_ID --by ADMIN_ID [--expires RFC3339]
  grant disable|enable <id>
  log [--scanner ID] [--limit N]
`

var errUsage = errors.New("usage")

// Admin is the slice of service.AdminService the commands drive.
type Admin interface {
	CreateUser(ctx context.Context, in service.NewUser) (store.User, error)
	SetUserActive(ctx context.Context, id string, active bool) error
	CreateScanner(ctx context.Context, in service.NewScanner) (store.Scanner, error)
	SetScannerActive(ctx context.Context, id string, active bool) error
	CreateToken(ctx context.Context, in service.NewToken) (store.Token, error)
	SetTokenActive(ctx context.Context, id string, active bool) error
	CreateGrant(ctx context.Context, in service.NewGrant) (store.Grant, error)
	SetGrantActive(ctx context.Context, id string, active bool) error
	ListAccessLog(ctx context.Context, f store.AccessLogFilter) ([]store.AccessLogRecord, error)
}

type cli struct {
	admin Admin
	out   io.Writer
}

func newCLI(admin Admin, out io.Writer) *cli {
	return &cli{admin: admin, out: out}
}

type toggleFunc func(ctx context.Context, id string, active bool) error

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "log":
		return c.listLog(ctx, rest)
	case "user":
		return c.entity(ctx, rest, c.addUser, c.admin.SetUserActive)
	case "scanner":
		return c.entity(ctx, rest, c.addScanner, c.admin.SetScannerActive)
	case "token":
		return c.entity(ctx, rest, c.addToken, c.admin.SetTokenActive)
	case "grant":
		return c.entity(ctx, rest, c.addGrant, c.admin.SetGrantActive)
	case "help":
		_, _ = io.WriteString(c.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func (c *cli) entity(ctx context.Context, args []string, add func(context.Context, []string) error, set toggleFunc) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		return add(ctx, args[1:])
	case "disable":
		return c.toggle(ctx, args[1:], set, false)
	case "enable":
		return c.toggle(ctx, args[1:], set, true)
	}
	return fmt.Errorf("unknown action %q: %w", args[0], errUsage)
}

func (c *cli) toggle(ctx context.Context, args []string, set toggleFunc, active bool) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errUsage
	}
	if err := set(ctx, args[0], active); err != nil {
		return err
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(c.out, "%s %s\n", args[0], state)
	return nil
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (c *cli) addUser(ctx context.Context, args []string) error {
	var in service.NewUser
	fs := newFlags("user add")
	fs.StringVar(&in.Email, "email", "", "login email")
	fs.StringVar(&in.Role, "role", "user", "root, admin or user")
	fs.StringVar(&in.DisplayName, "name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := c.admin.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	return c.table([]string{"ID", "EMAIL", "ROLE", "NAME"},
		[]string{u.ID, u.Email, string(u.Role), u.DisplayName})
}

func (c *cli) addScanner(ctx context.Context, args []string) error {
	var in service.NewScanner
	fs := newFlags("scanner add")
	fs.StringVar(&in.ID, "id", "", "scanner id (generated when empty)")
	fs.StringVar(&in.Name, "name", "", "display name")
	fs.StringVar(&in.Location, "location", "", "where the reader is mounted")
	fs.StringVar(&in.Direction, "direction", "both", "entry, exit or both")
	fs.StringVar(&in.Description, "description", "", "free text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := c.admin.CreateScanner(ctx, in)
	if err != nil {
		return err
	}
	return c.table([]string{"ID", "NAME", "LOCATION", "DIRECTION"},
		[]string{sc.ID, sc.Name, sc.Location, string(sc.Direction)})
}

func (c *cli) addToken(ctx context.Context, args []string) error {
	var in service.NewToken
	fs := newFlags("token add")
	fs.StringVar(&in.UID, "uid", "", "card uid in hex")
	fs.StringVar(&in.UserID, "user", "", "owning user id")
	fs.StringVar(&in.Name, "name", "", "label, e.g. \"blue fob\"")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := c.admin.CreateToken(ctx, in)
	if err != nil {
		return err
	}
	return c.table([]string{"ID", "UID", "USER", "NAME"},
		[]string{t.ID, t.UID, t.UserID, t.Name})
}

func (c *cli) addGrant(ctx context.Context, args []string) error {
	var in service.NewGrant
	var expires string
	fs := newFlags("grant add")
	fs.StringVar(&in.UserID, "user", "", "user id being granted access")
	fs.StringVar(&in.ScannerID, "scanner", "", "scanner id")
	fs.StringVar(&in.GrantedBy, "by", "", "id of the admin issuing the grant")
	fs.StringVar(&expires, "expires", "", "RFC3339 expiry; empty for a permanent grant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if expires != "" {
		at, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return fmt.Errorf("--expires: %w", err)
		}
		in.ExpiresAt = &at
	}

	g, err := c.admin.CreateGrant(ctx, in)
	if err != nil {
		return err
	}
	return c.table([]string{"ID", "USER", "SCANNER", "EXPIRES"},
		[]string{g.ID, g.UserID, g.ScannerID, formatTime(g.ExpiresAt)})
}

func (c *cli) listLog(ctx context.Context, args []string) error {
	var f store.AccessLogFilter
	fs := newFlags("log")
	fs.StringVar(&f.ScannerID, "scanner", "", "only entries for this scanner")
	fs.IntVar(&f.Limit, "limit", store.DefaultAccessLogLimit, "maximum entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	recs, err := c.admin.ListAccessLog(ctx, f)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		result := "granted"
		if !r.Granted {
			result = r.DenialReason
		}
		rows = append(rows, []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.ScannerID,
			r.RawUID,
			orDash(r.TokenID),
			result,
		})
	}
	return c.table([]string{"TIME", "SCANNER", "UID", "TOKEN", "RESULT"}, rows...)
}

func (c *cli) table(header []string, rows ...[]string) error {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		for i := range row {
			row[i] = orDash(row[i])
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
