package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"babyhabits/internal/config"
	"babyhabits/internal/db"
	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/domain/preferences"
	trackingdomain "babyhabits/internal/domain/tracking"
	userdomain "babyhabits/internal/domain/user"
	"babyhabits/internal/identity"
	"babyhabits/internal/notify"
	"babyhabits/internal/realtime"
	"babyhabits/internal/repository/inmemory"
	babypg "babyhabits/internal/repository/postgres/baby"
	trackingpg "babyhabits/internal/repository/postgres/tracking"
	userpg "babyhabits/internal/repository/postgres/user"
	redisstore "babyhabits/internal/repository/redis"
	"babyhabits/internal/transport/httpserver"
	"babyhabits/internal/transport/httpserver/handler"
	babieshandler "babyhabits/internal/transport/httpserver/handler/babies"
	"babyhabits/internal/transport/httpserver/handler/common"
	trackinghandler "babyhabits/internal/transport/httpserver/handler/tracking"
	authmw "babyhabits/internal/transport/httpserver/middleware"
	"babyhabits/pkg/logger"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	redis      *redis.Client
	bus        realtime.Bus
	closers    []func()
	log        logger.Logger
}

type repositories struct {
	babies   babydomain.Repository
	tracking trackingdomain.Repository
	users    userdomain.Repository
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	location, err := cfg.Tracking.Location()
	if err != nil {
		return nil, fmt.Errorf("tracking timezone: %w", err)
	}

	a := &App{cfg: cfg, log: log}

	repos, err := a.initStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	prefsStore, err := a.initRealtime()
	if err != nil {
		a.Close()
		return nil, err
	}

	ctx := context.Background()
	mailer, err := notify.NewMailer(ctx, notify.Config{
		Region:     cfg.SES.Region,
		FromEmail:  cfg.SES.FromEmail,
		FromName:   cfg.SES.FromName,
		AppBaseURL: cfg.Invite.AppBaseURL,
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("app: initializing services")
	users := userdomain.NewService(repos.users)
	prefs := preferences.NewService(prefsStore)
	babies := babydomain.NewService(repos.babies, log, babydomain.Options{
		Cache:     inmemory.NewBabiesCache(),
		CacheTTL:  cfg.Invite.CacheTTL,
		Mailer:    mailer,
		Publisher: a.bus,
		InviteTTL: cfg.Invite.TTL,
	})
	tracking := trackingdomain.NewService(repos.tracking, prefs, a.bus, trackingdomain.Policy{
		FeedingStaleAfter:   cfg.Tracking.FeedingStaleAfter,
		SleepStaleAfter:     cfg.Tracking.SleepStaleAfter,
		FeedingReapDuration: cfg.Tracking.FeedingReapDuration,
		SleepReapDuration:   cfg.Tracking.SleepReapDuration,
		RecentWeights:       cfg.Tracking.RecentWeights,
		SnapshotTTL:         cfg.Tracking.SnapshotTTL,
		IdleAfter:           cfg.Tracking.TrackerIdleAfter,
		Location:            location,
	}, log)

	for _, subscribe := range []func(context.Context, realtime.Subscriber) (func(), error){
		tracking.Subscribe,
		babies.Subscribe,
	} {
		cancel, err := subscribe(ctx, a.bus)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("subscribe to changes: %w", err)
		}
		a.closers = append(a.closers, cancel)
	}

	log.Info("app: initializing identity client")
	identityClient := identity.NewClient(identity.Config{
		URL:     cfg.Supabase.URL,
		APIKey:  cfg.Supabase.PublishableKey,
		Timeout: cfg.Supabase.AuthTimeout,
	})
	a.closers = append(a.closers, identityClient.OnAuthStateChange(func(event identity.Event, user identity.User) {
		if event == identity.EventSignedOut {
			tracking.Forget(user.ID)
		}
	}))

	auth := authmw.NewSupabaseAuth(cfg.Supabase, newTokenVerifier(cfg.Supabase.JWTSecret), identityClient, users, log)

	log.Info("app: initializing router")
	handlers := handler.New(
		common.New(identityClient, users, prefs, log),
		babieshandler.New(babies, prefs, cfg.Invite.AppBaseURL, log),
		trackinghandler.New(tracking, babies, a.bus, location, log),
	)
	router := httpserver.NewRouter(cfg, handlers, auth)

	log.Info("app: initializing http server")
	a.httpServer = httpserver.New(cfg, router)
	return a, nil
}

// newTokenVerifier returns a nil interface, not a nil *identity.Verifier,
// when no usable secret is configured so auth falls back to the provider.
func newTokenVerifier(secret string) authmw.TokenVerifier {
	if verifier := identity.NewVerifier(secret); verifier != nil {
		return verifier
	}
	return nil
}

func (a *App) initStore() (repositories, error) {
	switch a.cfg.StoreDriver {
	case config.StoreDriverMemory:
		a.log.Warn("app: using in-memory store, data is lost on restart")
		store := inmemory.NewStore()
		return repositories{
			babies:   inmemory.NewBabyRepository(store),
			tracking: inmemory.NewTrackingRepository(store),
			users:    inmemory.NewUserRepository(store),
		}, nil
	default:
		a.log.Info("app: initializing database")
		dbConn, err := db.NewPostgres(a.cfg.DB)
		if err != nil {
			return repositories{}, err
		}
		a.db = dbConn
		if err := db.Migrate(dbConn); err != nil {
			return repositories{}, fmt.Errorf("migrate: %w", err)
		}
		return repositories{
			babies:   babypg.NewPostgres(dbConn),
			tracking: trackingpg.NewPostgres(dbConn),
			users:    userpg.NewPostgres(dbConn),
		}, nil
	}
}

// initRealtime picks the change bus and the preferences store together:
// both live in Redis when it is configured and in process otherwise.
func (a *App) initRealtime() (preferences.Store, error) {
	if !a.cfg.Redis.Enabled() {
		a.log.Info("app: redis not configured, using in-process change feed")
		a.bus = realtime.NewLocalBus()
		return inmemory.NewPreferencesStore(inmemory.NewStore()), nil
	}

	a.log.Info("app: connecting to redis", "addr", a.cfg.Redis.Addr)
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.redis = client

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	a.bus = realtime.NewRedisBus(client, a.log)
	return redisstore.NewPreferencesStore(client), nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil

	var errs []error
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close change feed: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err != nil {
			errs = append(errs, err)
		} else if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
