// tagwardenctl provisions users, scanners, tokens and grants directly in the
// tagwarden datastore and prints the access log.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tagwarden/server/internal/config"
	"github.com/tagwarden/server/internal/db"
	"github.com/tagwarden/server/internal/logger"
	"github.com/tagwarden/server/internal/tagwarden/service"
	"github.com/tagwarden/server/internal/tagwarden/store/sqlstore"
)

const serviceName = "tagwardenctl"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	flags.SetInterspersed(false)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading TAGWARDEN_* variables")
	verbose := flags.BoolP("verbose", "v", false, "log service events to stderr")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() == 0 {
		return errUsage
	}

	_ = godotenv.Load(*envFile)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logg := logger.Nop()
	if *verbose {
		logg = logger.New(logger.Options{
			ServiceName: serviceName,
			Level:       cfg.LogLevel,
			Format:      "console",
			Output:      os.Stderr,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect := db.DialectFor(cfg.DBDriver)
	conn, err := db.Open(ctx, db.Config{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DBDSN,
		Env:    cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	st := sqlstore.New(conn, writer, dialect)
	admin := service.NewAdminService(st, st, service.WithLogger(logg))

	return newCLI(admin, os.Stdout).run(ctx, flags.Args())
}
