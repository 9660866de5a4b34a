// Command predicate-gate checks activity executions against the configured
// authorization authority and records decisions to the audit log.
//
// Usage:
//
//	predicate-gate check <activity> [json-arg ...]
//	predicate-gate audit [limit]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/predicate-security/predicate-gate/pkg/audit"
	"github.com/predicate-security/predicate-gate/pkg/authority"
	"github.com/predicate-security/predicate-gate/pkg/config"
	"github.com/predicate-security/predicate-gate/pkg/gate"
	"github.com/predicate-security/predicate-gate/pkg/observability"
	"github.com/predicate-security/predicate-gate/pkg/policy"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: predicate-gate <check|audit> ...")
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(ctx, cfg, os.Args[2:])
	case "audit":
		err = runAudit(ctx, cfg, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		var denied *gate.DeniedError
		if errors.As(err, &denied) {
			fmt.Fprintln(os.Stderr, denied.Error())
			os.Exit(2)
		}
		log.Fatalf("predicate-gate: %v", err)
	}
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func runCheck(ctx context.Context, cfg *config.Config, argv []string) error {
	if len(argv) < 1 {
		return fmt.Errorf("usage: predicate-gate check <activity> [json-arg ...]")
	}
	activity := argv[0]

	args := make([]any, 0, len(argv)-1)
	for _, raw := range argv[1:] {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			// Bare words are treated as strings.
			v = raw
		}
		args = append(args, v)
	}

	var obs *observability.Provider
	if cfg.OTLPEndpoint != "" {
		var err error
		obs, err = observability.New(ctx, &observability.Config{
			ServiceName:    "predicate-gate",
			ServiceVersion: "1.0.0",
			Environment:    "cli",
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SampleRate:     1.0,
			BatchTimeout:   time.Second,
			Enabled:        true,
			Insecure:       true,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Shutdown(shutdownCtx)
		}()
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	if obs != nil {
		provider = obs.Instrument(provider)
	}

	db, store, err := openAuditStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	provider = audit.NewRecorder(provider, audit.NewStoreSink(store, nil))

	interceptor := gate.NewInterceptor(provider,
		gate.WithPrincipal(cfg.Principal),
		gate.WithTenantID(cfg.TenantID),
		gate.WithSessionID(cfg.SessionID),
	)

	// The terminal stage stands in for the intercepted worker: reaching it
	// means the call was authorized.
	stage := interceptor.InterceptActivity(gate.StageFunc(
		func(ctx context.Context, in *gate.ActivityInput) (any, error) {
			return nil, nil
		},
	))

	if _, err := stage.ExecuteActivity(ctx, &gate.ActivityInput{ActivityName: activity, Args: args}); err != nil {
		return err
	}

	fmt.Printf("allowed: %s\n", activity)
	return nil
}

func runAudit(ctx context.Context, cfg *config.Config, argv []string) error {
	limit := 20
	if len(argv) > 0 {
		n, err := strconv.Atoi(argv[0])
		if err != nil {
			return fmt.Errorf("invalid limit %q", argv[0])
		}
		limit = n
	}

	db, store, err := openAuditStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// buildProvider selects the decision source: a remote authority when
// configured, a local policy document otherwise. Redis caching wraps either.
func buildProvider(cfg *config.Config) (authority.Provider, error) {
	var provider authority.Provider

	if cfg.AuthorityURL != "" {
		client, err := authority.NewClient(authority.ClientConfig{
			BaseURL:    cfg.AuthorityURL,
			SigningKey: []byte(cfg.SigningKey),
		})
		if err != nil {
			return nil, err
		}
		provider = client
	} else {
		doc, err := policy.Load(cfg.PolicyPath)
		if err != nil {
			return nil, err
		}
		provider, err = policy.NewAuthority(doc)
		if err != nil {
			return nil, err
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		provider = authority.NewCached(provider, client, cfg.CacheTTL)
	}
	return provider, nil
}

func openAuditStore(ctx context.Context, cfg *config.Config) (*sql.DB, *audit.SQLStore, error) {
	switch cfg.AuditDriver {
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.AuditDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := audit.NewSQLStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, store, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.AuditDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := audit.NewPostgresStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit driver %q", cfg.AuditDriver)
	}
}
