// Package app wires the catalog service's stores, services and lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/nine-apps/catalog_service/internal/app/auth"
	"github.com/nine-apps/catalog_service/internal/app/mailer"
	catalogsvc "github.com/nine-apps/catalog_service/internal/app/services/catalog"
	feedbacksvc "github.com/nine-apps/catalog_service/internal/app/services/feedback"
	timelinesvc "github.com/nine-apps/catalog_service/internal/app/services/timeline"
	userssvc "github.com/nine-apps/catalog_service/internal/app/services/users"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/internal/app/storage/memory"
	"github.com/nine-apps/catalog_service/internal/app/system"
	"github.com/nine-apps/catalog_service/internal/config"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users    storage.UserStore
	Codes    storage.CodeStore
	Apps     storage.AppStore
	Versions storage.VersionStore
	Likes    storage.LikeStore
	Feedback storage.FeedbackStore
	Timeline storage.TimelineStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users    *userssvc.Service
	Catalog  *catalogsvc.Service
	Feedback *feedbacksvc.Service
	Timeline *timelinesvc.Service
	Auth     *auth.Service
	Mail     *mailer.Dispatcher
}

// New builds a fully initialised application. A nil config falls back to the
// development defaults; a nil logger to the default one.
func New(stores Stores, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Codes == nil {
		stores.Codes = mem
	}
	if stores.Apps == nil {
		stores.Apps = mem
	}
	if stores.Versions == nil {
		stores.Versions = mem
	}
	if stores.Likes == nil {
		stores.Likes = mem
	}
	if stores.Feedback == nil {
		stores.Feedback = mem
	}
	if stores.Timeline == nil {
		stores.Timeline = mem
	}

	manager := system.NewManager()

	var sender mailer.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn("SMTP_HOST not set; outgoing mail is captured in memory")
		sender = mailer.NewMemorySender()
	}
	mail := mailer.NewDispatcher(sender, cfg.MailQueueSize, log)
	if err := manager.Register(mail); err != nil {
		return nil, fmt.Errorf("register mailer: %w", err)
	}

	var blacklist auth.Blacklist
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		blacklist = auth.NewRedisBlacklist(client)
	} else {
		log.Warn("REDIS_ADDR not set; token revocations are process-local")
		blacklist = auth.NewMemoryBlacklist()
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authService := auth.NewService(stores.Users, issuer, blacklist, log)

	usersService := userssvc.NewService(stores.Users, stores.Codes, stores.Timeline, mail, log)
	catalogService := catalogsvc.NewService(stores.Apps, stores.Versions, stores.Likes, log)
	feedbackService := feedbacksvc.NewService(stores.Feedback, log)
	timelineService := timelinesvc.NewService(stores.Timeline, log)

	return &Application{
		manager:  manager,
		log:      log,
		Users:    usersService,
		Catalog:  catalogService,
		Feedback: feedbackService,
		Timeline: timelineService,
		Auth:     authService,
		Mail:     mail,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
