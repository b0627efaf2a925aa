package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Wang-tianhao/edge-auth-go/identity"
)

const usage = `usage: accountctl <command> [flags]

commands:
  create   -email E -phone P -password PW [-roles R1,R2] [-plan PLAN] [-disabled]
  show     -id ID | -email E | -phone P
  enable   -id ID | -email E | -phone P
  disable  -id ID | -email E | -phone P
  lock     -id ID | -email E | -phone P -for DURATION
  unlock   -id ID | -email E | -phone P

every command accepts -db DSN (default $EDGE_AUTH_DATABASE_DSN or edge-auth.db)
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "accountctl:", err)
		os.Exit(1)
	}
}

type selector struct {
	id, email, phone, region string
}

func (s *selector) register(fs *flag.FlagSet) {
	fs.StringVar(&s.id, "id", "", "account id")
	fs.StringVar(&s.email, "email", "", "account email")
	fs.StringVar(&s.phone, "phone", "", "account phone")
	fs.StringVar(&s.region, "region", identity.DefaultPhoneRegion, "default region for phone numbers")
}

func (s *selector) find(ctx context.Context, store identity.Store) (*identity.Account, error) {
	switch {
	case s.id != "":
		return store.FindByID(ctx, s.id)
	case s.email != "":
		return store.FindByEmail(ctx, s.email)
	case s.phone != "":
		phone, err := identity.NormalizePhone(s.phone, s.region)
		if err != nil {
			return nil, err
		}
		return store.FindByPhone(ctx, phone)
	}
	return nil, errors.New("one of -id, -email or -phone is required")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	dsn := fs.String("db", envOr("EDGE_AUTH_DATABASE_DSN", "edge-auth.db"), "SQLite DSN")

	var (
		sel      selector
		password = fs.String("password", os.Getenv("ACCOUNTCTL_PASSWORD"), "password (create)")
		roles    = fs.String("roles", "ROLE_USER", "comma separated roles (create)")
		plan     = fs.String("plan", "", "subscription plan (create)")
		disabled = fs.Bool("disabled", false, "create the account disabled")
		lockFor  = fs.Duration("for", 0, "lock duration (lock)")
	)
	sel.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := identity.OpenSQLite(ctx, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "create":
		return create(ctx, store, out, sel, *password, *roles, *plan, !*disabled)
	case "show":
		account, err := sel.find(ctx, store)
		if err != nil {
			return err
		}
		printAccount(out, account)
		return nil
	case "enable", "disable":
		account, err := sel.find(ctx, store)
		if err != nil {
			return err
		}
		if err := store.SetEnabled(ctx, account.ID, cmd == "enable"); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %sd\n", account.ID, cmd)
		return nil
	case "lock":
		if *lockFor <= 0 {
			return errors.New("lock needs a positive -for duration")
		}
		account, err := sel.find(ctx, store)
		if err != nil {
			return err
		}
		until := time.Now().Add(*lockFor)
		if err := store.LockUntil(ctx, account.ID, until); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: locked until %s\n", account.ID, until.Format(time.RFC3339))
		return nil
	case "unlock":
		account, err := sel.find(ctx, store)
		if err != nil {
			return err
		}
		if err := store.LockUntil(ctx, account.ID, time.Time{}); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: unlocked\n", account.ID)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func create(ctx context.Context, store identity.Admin, out io.Writer, sel selector, password, roles, plan string, enabled bool) error {
	if password == "" {
		return errors.New("create needs -password or ACCOUNTCTL_PASSWORD")
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}

	account := &identity.Account{
		Email:        sel.email,
		PasswordHash: hash,
		Plan:         plan,
		Enabled:      enabled,
	}
	if sel.phone != "" {
		if account.Phone, err = identity.NormalizePhone(sel.phone, sel.region); err != nil {
			return err
		}
	}
	for _, r := range strings.Split(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			account.Roles = append(account.Roles, r)
		}
	}

	if err := store.Create(ctx, account); err != nil {
		return err
	}
	printAccount(out, account)
	return nil
}

func printAccount(out io.Writer, a *identity.Account) {
	fmt.Fprintf(out, "id:       %s\n", a.ID)
	fmt.Fprintf(out, "email:    %s\n", a.Email)
	fmt.Fprintf(out, "phone:    %s\n", a.Phone)
	fmt.Fprintf(out, "roles:    %s\n", strings.Join(a.Roles, ","))
	fmt.Fprintf(out, "plan:     %s\n", a.Plan)
	fmt.Fprintf(out, "enabled:  %t\n", a.Enabled)
	if !a.LockedUntil.IsZero() {
		fmt.Fprintf(out, "locked:   until %s\n", a.LockedUntil.Format(time.RFC3339))
	}
	if !a.LastLoginAt.IsZero() {
		fmt.Fprintf(out, "login:    %s\n", a.LastLoginAt.Format(time.RFC3339))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
