package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helsevakt/vaksineportal/config"
	redisadapter "github.com/helsevakt/vaksineportal/internal/adapters/redis"
	"github.com/helsevakt/vaksineportal/internal/bootstrap"
	"github.com/helsevakt/vaksineportal/internal/data"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"audit-list": {
			name:        "audit-list",
			description: "List recent auth events, optionally filtered by account",
			run:         runAuditList,
		},
		"audit-purge": {
			name:        "audit-purge",
			description: "Delete auth events older than a retention window",
			run:         runAuditPurge,
		},
		"session-show": {
			name:        "session-show",
			description: "Show a stored session by ID",
			run:         runSessionShow,
		},
		"session-delete": {
			name:        "session-delete",
			description: "Delete a stored session by ID",
			run:         runSessionDelete,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: vaksineportal-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "db", db)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runAuditList(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("audit-list", flag.ContinueOnError)
	accountID := fs.String("account", "", "filter by account ID")
	limit := fs.Int("limit", 50, "maximum events to list")
	rawJSON := fs.Bool("json", false, "emit JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "db", db)

	repo := data.NewAuthEventRepo(db)
	events, err := repo.ListRecent(ctx, *accountID, *limit)
	if err != nil {
		return err
	}

	if *rawJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "OCCURRED\tKIND\tACCOUNT\tUSERNAME\tDETAIL\n"); err != nil {
		return err
	}
	for _, ev := range events {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			ev.OccurredAt.Format(time.RFC3339), ev.Kind, ev.AccountID, ev.Username, ev.Detail); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runAuditPurge(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("audit-purge", flag.ContinueOnError)
	retention := fs.Duration("retention", 90*24*time.Hour, "keep events newer than this window")
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to purge without -yes")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "db", db)

	cutoff := time.Now().Add(-*retention)
	deleted, err := data.NewAuthEventRepo(db).PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	cmdCtx.Logger.Info("audit purge complete", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	return nil
}

func runSessionShow(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("session-show", flag.ContinueOnError)
	id := fs.String("id", "", "session ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	client, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "redis", client)

	store := redisadapter.NewSessionStoreWithPrefix(client, "session:")
	sess, err := store.Get(ctx, *id)
	if err != nil {
		if errors.Is(err, redisadapter.ErrNotFound) {
			return fmt.Errorf("session %q not found", *id)
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sess)
}

func runSessionDelete(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("session-delete", flag.ContinueOnError)
	id := fs.String("id", "", "session ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	client, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "redis", client)

	store := redisadapter.NewSessionStoreWithPrefix(client, "session:")
	if err := store.Delete(ctx, *id); err != nil {
		return err
	}

	cmdCtx.Logger.Info("session deleted", "id", *id)
	return nil
}

func connectDB(cmdCtx *commandContext) (*sql.DB, error) {
	return bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
}

func connectRedis(cmdCtx *commandContext) (redis.UniversalClient, error) {
	return bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
}

func closeQuietly(logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "resource", name, "error", err)
	}
}
