package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buswatch/buswatch-api/internal/adapters/redisstore"
	"github.com/buswatch/buswatch-api/internal/bootstrap"
	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

const sessionScanBatch = 100

type listSessionsOptions struct {
	UserID  string
	Email   string
	Timeout time.Duration
}

type clearSessionsOptions struct {
	UserID  string
	All     bool
	DryRun  bool
	Yes     bool
	Timeout time.Duration
}

func runListSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseListSessionsFlags(args)
	if err != nil {
		return err
	}

	return withRedis(cmdCtx, opts.Timeout, func(ctx context.Context, client redis.UniversalClient) error {
		sessions, scanErr := scanSessions(ctx, client, func(sess domainauth.Session) bool {
			if opts.UserID != "" && sess.UserID != opts.UserID {
				return false
			}
			if opts.Email != "" && !strings.EqualFold(sess.Email, opts.Email) {
				return false
			}
			return true
		})
		if scanErr != nil {
			return scanErr
		}

		return printSessions(ctx, client, sessions)
	})
}

func runClearSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearSessionsFlags(args)
	if err != nil {
		return err
	}

	return withRedis(cmdCtx, opts.Timeout, func(ctx context.Context, client redis.UniversalClient) error {
		sessions, scanErr := scanSessions(ctx, client, func(sess domainauth.Session) bool {
			return opts.All || sess.UserID == opts.UserID
		})
		if scanErr != nil {
			return scanErr
		}

		if len(sessions) == 0 {
			return writeln(os.Stdout, "No matching sessions found.")
		}

		if opts.DryRun {
			if err := writef(os.Stdout, "Dry run: %d session(s) would be revoked.\n", len(sessions)); err != nil {
				return err
			}
			return printSessions(ctx, client, sessions)
		}

		if !opts.Yes {
			target := fmt.Sprintf("%d session(s)", len(sessions))
			if confirmErr := confirmAction(target, "revoke sessions"); confirmErr != nil {
				return confirmErr
			}
		}

		keys := make([]string, 0, len(sessions))
		for _, sess := range sessions {
			keys = append(keys, redisstore.DefaultPrefix+sess.ID)
		}
		deleted, delErr := client.Del(ctx, keys...).Result()
		if delErr != nil {
			return fmt.Errorf("delete session keys: %w", delErr)
		}

		cmdCtx.Logger.Info("sessions revoked", "count", deleted)
		return nil
	})
}

// scanSessions walks the session keyspace and decodes every entry that
// passes the filter. Corrupt entries are skipped rather than failing the
// whole listing.
func scanSessions(
	ctx context.Context,
	client redis.UniversalClient,
	include func(domainauth.Session) bool,
) ([]domainauth.Session, error) {
	var sessions []domainauth.Session
	var cursor uint64
	pattern := redisstore.DefaultPrefix + "*"

	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, sessionScanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan session keys: %w", err)
		}

		for _, key := range keys {
			raw, getErr := client.Get(ctx, key).Result()
			if getErr != nil {
				if errors.Is(getErr, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("read session %q: %w", key, getErr)
			}

			var sess domainauth.Session
			if jsonErr := json.Unmarshal([]byte(raw), &sess); jsonErr != nil {
				continue
			}
			if include(sess) {
				sessions = append(sessions, sess)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return sessions, nil
}

func printSessions(ctx context.Context, client redis.UniversalClient, sessions []domainauth.Session) error {
	if len(sessions) == 0 {
		return writeln(os.Stdout, "No active sessions found.")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "SESSION\tUSER\tEMAIL\tROLE\tSCHOOL\tTTL"); err != nil {
		return err
	}

	for _, sess := range sessions {
		school := "-"
		if sess.SchoolID != nil {
			school = *sess.SchoolID
		}

		ttl, err := client.TTL(ctx, redisstore.DefaultPrefix+sess.ID).Result()
		if err != nil {
			ttl = -1
		}

		if err := writef(
			w,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(sess.ID),
			shortID(sess.UserID),
			sess.Email,
			sess.Role,
			school,
			renderTTL(ttl),
		); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush session table: %w", err)
	}
	return writef(os.Stdout, "\n%d session(s)\n", len(sessions))
}

func shortID(id string) string {
	const visible = 8
	if len(id) <= visible {
		return id
	}
	return id[:visible]
}

func renderTTL(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}
	return d.Round(time.Second).String()
}

//nolint:ireturn // the callback accepts redis.UniversalClient to match bootstrap.ConnectRedis.
func withRedis(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, redis.UniversalClient) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	return f(ctx, client)
}

func parseListSessionsFlags(args []string) (listSessionsOptions, error) {
	fs := flag.NewFlagSet("list-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listSessionsOptions{
		Timeout: defaultCommandTimeout,
	}

	fs.StringVar(&opts.UserID, "user-id", "", "Only show sessions for this user ID")
	fs.StringVar(&opts.Email, "email", "", "Only show sessions for this email address")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the command to complete")

	if err := fs.Parse(args); err != nil {
		return listSessionsOptions{}, err
	}

	if opts.Timeout <= 0 {
		return listSessionsOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseClearSessionsFlags(args []string) (clearSessionsOptions, error) {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := clearSessionsOptions{
		Timeout: defaultCommandTimeout,
	}

	fs.StringVar(&opts.UserID, "user-id", "", "Revoke sessions for this user ID")
	fs.BoolVar(&opts.All, "all", false, "Revoke every active session")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be revoked without deleting anything")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the command to complete")

	if err := fs.Parse(args); err != nil {
		return clearSessionsOptions{}, err
	}

	if opts.Timeout <= 0 {
		return clearSessionsOptions{}, errors.New("--timeout must be greater than zero")
	}
	if !opts.All && opts.UserID == "" {
		return clearSessionsOptions{}, errors.New("--user-id is required (or use --all)")
	}
	if opts.All && opts.UserID != "" {
		return clearSessionsOptions{}, errors.New("--all and --user-id are mutually exclusive")
	}

	return opts, nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
