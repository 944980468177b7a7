package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// app is every long-lived component of a running server.
type app struct {
	cfg      *Config
	db       *sql.DB
	store    Store
	auth     AuthProvider
	writes   *WriteQueue
	hub      *Hub
	sessions *SessionManager
	portal   *Portal
	server   *Server
}

func newFirebaseApp(ctx context.Context, cfg *Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	fb, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %v", err)
	}
	return fb, nil
}

func buildApp(ctx context.Context, cfg *Config) (*app, error) {
	a := &app{cfg: cfg}

	var fb *firebase.App
	if cfg.usesFirebase() {
		var err error
		if fb, err = newFirebaseApp(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Store == "sqlite" || cfg.AuthProvider == "local" {
		db, err := initDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
	}

	switch cfg.Store {
	case "firestore":
		client, err := fb.Firestore(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("error getting Firestore client: %v", err)
		}
		a.store = NewFirestoreStore(client)
	default:
		store, err := NewSQLiteStore(a.db)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
	}

	switch cfg.AuthProvider {
	case "firebase":
		fa, err := NewFirebaseAuth(ctx, fb, cfg.FirebaseAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.auth = fa
	default:
		if cfg.DefaultAdminPassword != "" {
			if err := seedAdmin(a.db, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
				log.Error().Err(err).Msg("Error seeding admin account")
			}
		}
		a.auth = NewLocalAuth(a.db, cfg.BaseURL)
	}

	if cfg.SeedDemo && a.db != nil && cfg.Store == "sqlite" {
		if err := seedDemoData(a.db); err != nil {
			log.Error().Err(err).Msg("Error seeding demo data")
		}
	}

	policy, err := parseTransitionPolicy(cfg.StatusTransitions)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.hub = newHub()
	a.writes = NewWriteQueue(cfg.WriteWorkers, cfg.WriteQueueDepth)
	a.sessions = NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)

	opts := []PortalOption{
		WithTransitionPolicy(policy),
		WithAnnouncer(a.hub),
		WithNotifiers(buildNotifiers(ctx, cfg, fb)...),
	}
	if cfg.GeminiAPIKey != "" {
		predictor, err := NewGenAIPredictor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error().Err(err).Msg("Crowd predictor disabled")
		} else {
			opts = append(opts, WithPredictor(predictor))
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, crowd predictor disabled")
	}
	a.portal = NewPortal(a.store, a.writes, opts...)

	server, err := NewServer(cfg, a.portal, a.auth, a.sessions, a.hub)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.server = server
	return a, nil
}

func buildNotifiers(ctx context.Context, cfg *Config, fb *firebase.App) []Notifier {
	var notifiers []Notifier
	if cfg.FCMEnabled && fb != nil {
		client, err := fb.Messaging(ctx)
		if err != nil {
			log.Error().Err(err).Msg("FCM notifier disabled")
		} else {
			notifiers = append(notifiers, NewFCMNotifier(client))
		}
	}
	if cfg.TelegramToken != "" {
		tn, err := NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramVolunteerChatID)
		if err != nil {
			log.Error().Err(err).Msg("Telegram notifier disabled")
		} else {
			notifiers = append(notifiers, tn)
		}
	}
	return notifiers
}

// Close releases the store and the database. The write queue must be
// drained first.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing store")
		}
		if _, ok := a.store.(*SQLiteStore); ok {
			return
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// run serves until ctx is cancelled, then shuts the server down and
// drains queued writes.
func (a *app) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.run(gctx)
		return nil
	})

	g.Go(func() error {
		a.server.reportFailures(a.writes.Failures())
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				expired := a.sessions.Sweep(now)
				for _, sess := range expired {
					if err := a.portal.EndShift(gctx, sess.ShiftID); err != nil {
						log.Error().Err(err).Str("uid", sess.Identity.UID).Msg("Error closing expired shift")
					}
				}
				if len(expired) > 0 {
					log.Info().Int("expired", len(expired)).Int("active", a.sessions.Active()).Msg("Expired sessions swept")
				}
			}
		}
	})

	g.Go(func() error {
		log.Info().Str("port", a.cfg.Port).Str("store", a.cfg.Store).Str("auth", a.cfg.AuthProvider).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Error shutting down http server")
		}
		a.writes.Close()
		log.Info().Msg("Server stopped")
		return nil
	})

	return g.Wait()
}
