package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/buswatch/buswatch-api/internal/adapters/pgcreds"
	"github.com/buswatch/buswatch-api/internal/core"
	"github.com/buswatch/buswatch-api/internal/data"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
)

type createUserOptions struct {
	Name     string
	Email    string
	Role     string
	SchoolID string
	Password string
	Timeout  time.Duration
}

type resetPasswordOptions struct {
	Email    string
	Password string
	Timeout  time.Duration
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args)
	if err != nil {
		return err
	}

	role, ok := domainauth.ParseRole(opts.Role)
	if !ok {
		return fmt.Errorf(
			"invalid --role %q (valid options: %s, %s, %s)",
			opts.Role, domainauth.RoleDriver, domainauth.RoleSchoolAdmin, domainauth.RoleSuperAdmin,
		)
	}

	var schoolID *string
	if opts.SchoolID != "" {
		schoolID = &opts.SchoolID
	}

	hash, err := pgcreds.HashPassword(opts.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		users := data.NewUserRepo(db)
		user, createErr := users.Create(ctx, core.CreateUserParams{
			Request: &model.CreateUserRequest{
				Name:     opts.Name,
				Email:    opts.Email,
				Role:     role,
				SchoolID: schoolID,
				Password: opts.Password,
			},
			PasswordHash: hash,
		})
		if createErr != nil {
			return fmt.Errorf("create user: %w", createErr)
		}

		cmdCtx.Logger.Info("user created",
			"id", user.ID,
			"email", user.Email,
			"role", user.Role,
		)
		return nil
	})
}

func runResetPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseResetPasswordFlags(args)
	if err != nil {
		return err
	}

	hash, err := pgcreds.HashPassword(opts.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		users := data.NewUserRepo(db)
		user, lookupErr := users.GetByEmail(ctx, opts.Email)
		if lookupErr != nil {
			return fmt.Errorf("look up user %q: %w", opts.Email, lookupErr)
		}

		if setErr := users.SetPasswordHash(ctx, user.ID, hash); setErr != nil {
			return fmt.Errorf("store password: %w", setErr)
		}

		cmdCtx.Logger.Info("password updated", "id", user.ID, "email", user.Email)
		return nil
	})
}

func parseCreateUserFlags(args []string) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := createUserOptions{
		Timeout: defaultCommandTimeout,
	}

	fs.StringVar(&opts.Name, "name", "", "Full name of the new user")
	fs.StringVar(&opts.Email, "email", "", "Email address of the new user")
	fs.StringVar(&opts.Role, "role", "", "Role: driver, school-admin, or super-admin")
	fs.StringVar(&opts.SchoolID, "school-id", "", "School the user belongs to (required for driver and school-admin)")
	fs.StringVar(&opts.Password, "password", "", "Initial password")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the command to complete")

	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}

	if strings.TrimSpace(opts.Name) == "" {
		return createUserOptions{}, errors.New("--name is required")
	}
	if strings.TrimSpace(opts.Email) == "" {
		return createUserOptions{}, errors.New("--email is required")
	}
	if strings.TrimSpace(opts.Role) == "" {
		return createUserOptions{}, errors.New("--role is required")
	}
	if opts.Password == "" {
		return createUserOptions{}, errors.New("--password is required")
	}
	if opts.Timeout <= 0 {
		return createUserOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseResetPasswordFlags(args []string) (resetPasswordOptions, error) {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := resetPasswordOptions{
		Timeout: defaultCommandTimeout,
	}

	fs.StringVar(&opts.Email, "email", "", "Email address of the account")
	fs.StringVar(&opts.Password, "password", "", "New password")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the command to complete")

	if err := fs.Parse(args); err != nil {
		return resetPasswordOptions{}, err
	}

	if strings.TrimSpace(opts.Email) == "" {
		return resetPasswordOptions{}, errors.New("--email is required")
	}
	if opts.Password == "" {
		return resetPasswordOptions{}, errors.New("--password is required")
	}
	if opts.Timeout <= 0 {
		return resetPasswordOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}
