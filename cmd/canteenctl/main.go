// Package main содержит административную утилиту сервиса заказов столовой:
// сброс данных, сверку балансов и назначение управляющих точек.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/service"
)

const usage = `usage: canteenctl <command> [flags]

commands:
  reset         delete users, orders, transactions and notifications (requires -yes)
  audit         compare cached wallet balances with the transaction journal
  link-manager  make a user the manager of an outlet (-vendor ID -email EMAIL)
`

type dbConfig struct {
	DatabaseURI string `env:"DATABASE_URI"`
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		logger.Sugar().Fatalw("canteenctl failed", "error", err.Error())
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *zap.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("command is required")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	var cfg dbConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	fset := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fset.SetOutput(out)
	dsn := fset.String("d", cfg.DatabaseURI, "database URI")
	yes := fset.Bool("yes", false, "confirm destructive reset")
	vendorID := fset.Int64("vendor", 0, "outlet id for link-manager")
	email := fset.String("email", "", "manager email for link-manager")
	if err := fset.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "reset", "audit", "link-manager":
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	if *dsn == "" {
		return errors.New("database URI is required (DATABASE_URI or -d)")
	}
	repo, err := repository.NewPostgresRepository(*dsn)
	if err != nil {
		return fmt.Errorf("database initialization: %w", err)
	}
	defer repo.Close()

	switch args[0] {
	case "reset":
		if !*yes {
			return errors.New("reset deletes all user data, rerun with -yes to confirm")
		}
		sum, err := repo.ResetAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d users, %d orders, %d transactions, %d notifications\n",
			sum.Users, sum.Orders, sum.Transactions, sum.Notifications)

	case "audit":
		svc := service.NewService(repo, nil, logger, service.Options{})
		res, err := svc.AuditBalances(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			fmt.Fprintln(out, "all balances match the transaction journal")
			return nil
		}
		for _, m := range res {
			fmt.Fprintf(out, "%s %d: cached %s, journal %s\n",
				m.Kind, m.ID, m.Cached.StringFixed(2), m.Computed.StringFixed(2))
		}
		return fmt.Errorf("%d balance mismatches", len(res))

	case "link-manager":
		if *vendorID <= 0 || *email == "" {
			return errors.New("link-manager requires -vendor and -email")
		}
		if err := repo.LinkManager(ctx, *vendorID, strings.ToLower(strings.TrimSpace(*email))); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s now manages outlet %d\n", *email, *vendorID)
	}

	return nil
}
