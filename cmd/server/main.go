package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/api"
	"github.com/apistarter/auth-api/internal/api/handler"
	"github.com/apistarter/auth-api/internal/api/middleware"
	"github.com/apistarter/auth-api/internal/core/ports"
	"github.com/apistarter/auth-api/internal/core/service"
	"github.com/apistarter/auth-api/internal/pkg/config"
	"github.com/apistarter/auth-api/internal/infrastructure/db/memory"
	mongodb "github.com/apistarter/auth-api/internal/infrastructure/db/mongo"
	redisdb "github.com/apistarter/auth-api/internal/infrastructure/db/redis"
	"github.com/apistarter/auth-api/internal/infrastructure/mail"
	"github.com/apistarter/auth-api/internal/infrastructure/oauth"
	"github.com/apistarter/auth-api/internal/infrastructure/queue"
	"github.com/apistarter/auth-api/internal/infrastructure/storage"
	"github.com/apistarter/auth-api/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: "auth-api"})
		boot.Fatal().Err(err).Msg("configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// repositories groups the persistence ports of one store driver.
type repositories struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	perms  ports.PermissionRepository
	tokens ports.TokenRepository
	tx     ports.Transactor
	health handler.Pinger
	close  func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	repos, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	limiter := redisdb.NewRateLimiter(rdb)
	resets := redisdb.NewPasswordResetStore(rdb)

	// --- Mail ---
	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:       cfg.Mail.Host,
		Port:       cfg.Mail.Port,
		Username:   cfg.Mail.Username,
		Password:   cfg.Mail.Password,
		From:       cfg.Mail.From,
		FromName:   cfg.Mail.FromName,
		SkipVerify: cfg.Mail.SkipVerify,
	})
	dispatcher := queue.NewDispatcher(cfg.Mail.Workers, mailer, log)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher.Start(workerCtx)
	defer dispatcher.Close()

	// --- Files ---
	var files interface {
		ports.FileStorage
		handler.URLResolver
	} = storage.Disabled{}
	if cfg.S3.Bucket != "" {
		s3, err := storage.NewS3(ctx, storage.Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
			PublicURL:    cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		files = s3
	} else {
		log.Warn().Msg("S3_BUCKET not set, profile picture uploads are disabled")
	}

	// --- OAuth ---
	stateSecret := cfg.OAuth.StateSecret
	if stateSecret == "" {
		stateSecret = uuid.NewString()
		log.Warn().Msg("OAUTH_STATE_SECRET not set, using an ephemeral secret")
	}
	providers := oauth.NewRegistry(map[string]oauth.ClientConfig{
		oauth.Google:   {ClientID: cfg.OAuth.GoogleClientID, ClientSecret: cfg.OAuth.GoogleClientSecret, RedirectURL: cfg.OAuth.GoogleRedirectURL},
		oauth.Facebook: {ClientID: cfg.OAuth.FacebookClientID, ClientSecret: cfg.OAuth.FacebookClientSecret, RedirectURL: cfg.OAuth.FacebookRedirectURL},
		oauth.GitHub:   {ClientID: cfg.OAuth.GitHubClientID, ClientSecret: cfg.OAuth.GitHubClientSecret, RedirectURL: cfg.OAuth.GitHubRedirectURL},
	})
	log.Info().Strs("providers", providers.Names()).Msg("oauth providers configured")

	// --- Services ---
	tokens := service.NewTokenService(repos.tokens, repos.users, cfg.Token.TTL(), log)
	access := service.NewAccessResolver(repos.roles, repos.perms)
	auth := service.NewAuthService(repos.users, repos.roles, tokens, access, log).
		WithLoginThrottle(limiter, cfg.RateLimit.Login, cfg.RateLimit.Window)
	passwords := service.NewPasswordService(
		repos.users, resets, tokens,
		mail.NewNotifier(dispatcher, cfg.AppName),
		cfg.FrontendURL+"/reset-password",
		cfg.Password.ResetTTL, cfg.Password.ResetThrottle,
		log,
	)
	social := service.NewSocialAuthService(providers, oauth.NewStateSigner(stateSecret, 0), repos.users, repos.roles, tokens, access, log)
	profile := service.NewProfileService(repos.users, access, files, log)
	adminUsers := service.NewAdminUserService(repos.users, repos.roles, tokens, access, repos.tx, log)
	adminRoles := service.NewAdminRoleService(repos.roles, repos.perms, repos.users, repos.tx, log)

	err = service.NewSeeder(repos.roles, repos.perms, repos.users, log).Run(ctx, service.SeedConfig{
		Permissions:   cfg.Seed.Permissions,
		AdminName:     cfg.Seed.AdminName,
		AdminEmail:    cfg.Seed.AdminEmail,
		AdminPassword: cfg.Seed.AdminPassword,
	})
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Options{
		Production:         cfg.IsProduction(),
		Version:            "v1",
		LatestVersion:      cfg.API.LatestVersion,
		DeprecatedVersions: cfg.API.DeprecatedVersions,
		RateLimits: middleware.RateLimitTiers{
			Default:       cfg.RateLimit.Default,
			Authenticated: cfg.RateLimit.Authenticated,
			Admin:         cfg.RateLimit.Admin,
			Window:        cfg.RateLimit.Window,
		},
		Metrics: prometheus.DefaultRegisterer,
	}, api.Services{
		Tokens:     tokens,
		Access:     access,
		Auth:       auth,
		Passwords:  passwords,
		Social:     social,
		Profile:    profile,
		AdminUsers: adminUsers,
		AdminRoles: adminRoles,
		Limiter:    limiter,
		URLs:       files,
		Health: map[string]handler.Pinger{
			cfg.StoreDriver: repos.health,
			"redis":         redisdb.NewPinger(rdb),
		},
	}, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("using the in-memory store, data is lost on exit")
		s := memory.NewStore()
		return &repositories{
			users:  s.Users(),
			roles:  s.Roles(),
			perms:  s.Permissions(),
			tokens: s.Tokens(),
			tx:     s,
			health: s,
			close:  func(context.Context) error { return nil },
		}, nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	users := mongodb.NewUserRepository(db)
	roles := mongodb.NewRoleRepository(db)
	perms := mongodb.NewPermissionRepository(db)
	tokens := mongodb.NewTokenRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, roles, perms, tokens); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &repositories{
		users:  users,
		roles:  roles,
		perms:  perms,
		tokens: tokens,
		tx:     mongodb.NewTransactor(client),
		health: mongodb.NewPinger(client),
		close:  client.Disconnect,
	}, nil
}
