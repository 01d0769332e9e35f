package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/audit"
	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/config"
	"caringcompass.org/internal/httpapi"
	"caringcompass.org/internal/identity"
	"caringcompass.org/internal/obs"
	"caringcompass.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Persistence: postgres when a DSN is configured, in-memory otherwise.
	var (
		db       *sql.DB
		actors   auth.ActorStore
		profiles auth.ProfileStore
		invites  auth.InviteStore
		accounts identity.AccountStore
		tokens   identity.RefreshTokenStore
		sink     audit.Sink
	)
	if cfg.PostgresDSN != "" {
		store, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		db = store.DB()
		actors, profiles, invites = store, store, store.Invites()
		accounts, tokens, sink = store.Accounts(), store.Tokens(), store
	} else {
		log.Println("CC_PG_DSN not set, using in-memory stores")
		mem := auth.NewMemoryStore()
		actors, profiles, invites = mem, mem, auth.NewMemoryInviteStore()
		accounts, tokens = identity.NewMemoryAccounts(), identity.NewMemoryTokens()
		sink = audit.LogSink{}
	}

	// Sign-in limiter: shared via redis when configured, per-process otherwise.
	var limiter auth.SignInLimiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		limiter = auth.NewRedisSignInLimiter(client, int64(cfg.SignInLimit), cfg.SignInWindow)
	} else {
		limiter = auth.NewWindowLimiter(cfg.SignInLimit, cfg.SignInWindow)
	}

	provider, err := identity.NewProvider(accounts, tokens, identity.LogMailer{}, []byte(cfg.SigningKey),
		identity.WithAccessTTL(cfg.AccessTokenTTL),
		identity.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("identity: %v", err)
	}

	svc := auth.NewService(provider, actors, profiles, invites, audit.NewRecorder(sink),
		auth.WithSignInLimiter(limiter),
		auth.WithInviteTTL(cfg.InviteTTL),
		auth.WithInviteMailer(identity.LogInviteMailer{}),
	)

	api := httpapi.New(svc, access.NewDefaultEvaluator(), httpapi.ReadyProbe{DB: db}, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting care-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
