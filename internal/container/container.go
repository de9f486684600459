package container

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"printshop/storefront/internal/client"
	"printshop/storefront/internal/config"
	"printshop/storefront/internal/content"
	"printshop/storefront/internal/domain"
	"printshop/storefront/internal/forms"
	"printshop/storefront/internal/gallery"
	"printshop/storefront/internal/queue"
	"printshop/storefront/internal/repository"
	"printshop/storefront/internal/server"
	"printshop/storefront/internal/service"
	"printshop/storefront/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config      *config.Config
	ReadClient  client.ContentClient
	WriteClient client.ContentClient // nil without content.token
	Fetcher     *content.Fetcher

	Repository repository.SubmissionRepository
	Queue      queue.Queue
	Pending    state.PendingDownloads
	Recorder   gallery.DownloadRecorder

	Service *service.Service
	Forms   *forms.Service
	Server  *server.Server

	db    *pgxpool.Pool
	redis *redis.Client
}

// NewCatalog initializes only the read side of the content API.
func NewCatalog(cfg *config.Config) (*Container, error) {
	readClient, err := client.ForContext(domain.ExecutionBrowser, cfg.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content client: %w", err)
	}

	container := &Container{
		Config:     cfg,
		ReadClient: readClient,
		Fetcher:    content.NewFetcher(readClient),
	}

	if cfg.Content.Token != "" {
		writeClient, err := client.ForContext(domain.ExecutionServer, cfg.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize content write client: %w", err)
		}
		container.WriteClient = writeClient
	}

	return container, nil
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container, err := NewCatalog(cfg)
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	container.db = db

	if err := repository.EnsureSchema(ctx, db); err != nil {
		container.Close()
		return nil, err
	}
	log.Info("✅ Connected to PostgreSQL successfully")

	container.Repository = repository.NewSubmissionRepository(db)

	var forwarder forms.Forwarder
	if cfg.Forms.ForwardURL != "" {
		forwarder = forms.NewHTTPForwarder(cfg.Forms.ForwardURL, cfg.Content.RequestTimeout())
	}
	container.Forms = forms.NewService(container.Repository, forwarder)

	templates := gallery.Source(content.NewTemplateSource(container.Fetcher))

	switch cfg.Downloads.Mode {
	case config.DownloadModeQueue:
		if err := container.initQueue(ctx); err != nil {
			container.Close()
			return nil, err
		}
		container.Recorder = service.NewQueuedIncrementer(container.Queue, container.Pending)
		templates = service.WithPendingDownloads(templates, container.Pending)

		if container.WriteClient != nil {
			container.Service = service.NewService(
				container.WriteClient,
				container.Queue,
				container.Pending,
				cfg.Redis.ConsumerGroup,
				cfg.Redis.MinIdleTime,
			)
		}

	default:
		if container.WriteClient != nil {
			container.Recorder = service.NewDirectIncrementer(container.WriteClient)
		} else {
			log.Warn("⚠️ content.token is not set, downloads are counted locally only")
		}
	}

	fetcher := container.Fetcher
	container.Server = server.New(cfg, server.Deps{
		Templates: templates,
		Products: func(categorySlug string) gallery.Source {
			return content.NewProductSource(fetcher, categorySlug)
		},
		Recorder: container.Recorder,
		Forms:    container.Forms,
	})

	return container, nil
}

// NewWorker initializes only what the download workers need: the write client,
// Redis and the worker service.
func NewWorker(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg.Downloads.Mode != config.DownloadModeQueue || cfg.Content.Token == "" {
		return nil, fmt.Errorf("workers need downloads.mode=%s and content.token", config.DownloadModeQueue)
	}

	writeClient, err := client.ForContext(domain.ExecutionServer, cfg.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content write client: %w", err)
	}

	container := &Container{
		Config:      cfg,
		WriteClient: writeClient,
	}
	if err := container.initQueue(ctx); err != nil {
		container.Close()
		return nil, err
	}

	container.Service = service.NewService(
		writeClient,
		container.Queue,
		container.Pending,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)
	return container, nil
}

func (c *Container) initQueue(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.Database,
	})
	c.redis = rdb

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, c.Config.Redis)
	if err != nil {
		return err
	}
	c.Queue = redisQueue
	c.Pending = state.NewRedisPendingDownloads(rdb)

	return nil
}

// Run serves the storefront and, in queue mode with a write token, drains the
// download stream in the same process.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.Run(ctx)
	})

	if c.Service != nil {
		g.Go(func() error {
			return c.Service.RunWorkers(ctx, c.Config.Downloads.MaxWorkers)
		})
	}

	return g.Wait()
}

// RunWorkers only drains the download stream.
func (c *Container) RunWorkers(ctx context.Context) error {
	if c.Service == nil {
		return fmt.Errorf("workers need downloads.mode=%s and content.token", config.DownloadModeQueue)
	}
	return c.Service.RunWorkers(ctx, c.Config.Downloads.MaxWorkers)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
