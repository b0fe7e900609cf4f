package main

import (
	"context"
	"fmt"

	"blog/api/handlers"
	"blog/cache"
	"blog/config"
	"blog/db"
	"blog/logger"
	"blog/media"
	"blog/services"
	"blog/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app держит все зависимости процесса; close освобождает их в обратном порядке
type app struct {
	conf     *config.Config
	orm      *gorm.DB
	store    *store.Store
	redis    *redis.Client
	storage  media.Storage
	ws       *services.WSConnManager
	rabbit   *services.RabbitPublisher
	notifier *services.FeedNotifier
	auth     *services.AuthService
	handler  *handlers.Handler
}

func openStore(conf *config.Config) (*gorm.DB, error) {
	orm, err := db.Connect(conf.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(orm); err != nil {
		_ = db.Close(orm)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return orm, nil
}

func (a *app) pageCacheBackend(ctx context.Context) (cache.Cache, error) {
	switch a.conf.Cache.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, a.conf.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return cache.NewRedisCache(client, a.conf.Cache.Prefix), nil
	case "none":
		return cache.NoopCache{}, nil
	default:
		return cache.NewMemoryCache().WithMaxEntries(a.conf.Cache.MaxEntries), nil
	}
}

// publisher - куда уходят события о новых постах. С RabbitMQ события идут через брокер
// и возвращаются в WebSocket консьюмером; без него сразу в WebSocket.
func (a *app) publisher(ctx context.Context) services.Publisher {
	if !a.conf.RabbitMQ.Enabled {
		return a.ws
	}
	rabbit, err := services.DialRabbitMQ(a.conf.RabbitMQ.URL, a.conf.RabbitMQ.Exchange)
	if err != nil {
		logger.L.Warn("RabbitMQ unavailable, pushing feed events directly", zap.Error(err))
		return a.ws
	}
	if err := rabbit.Consume(ctx, a.conf.RabbitMQ.Queue, a.ws); err != nil {
		logger.L.Warn("RabbitMQ consumer failed, pushing feed events directly", zap.Error(err))
		_ = rabbit.Close()
		return a.ws
	}
	a.rabbit = rabbit
	return services.FallbackPublisher{Primary: rabbit, Fallback: a.ws}
}

func newApp(ctx context.Context, conf *config.Config) (*app, error) {
	a := &app{conf: conf, ws: services.NewWSConnManager()}

	orm, err := openStore(conf)
	if err != nil {
		return nil, err
	}
	a.orm = orm
	a.store = store.New(orm)

	backend, err := a.pageCacheBackend(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.storage, err = media.New(conf.Media)
	if err != nil {
		a.close()
		return nil, err
	}

	a.notifier = services.NewFeedNotifier(a.store, a.publisher(ctx), conf.Feed.NotifyWorkers, conf.Feed.NotifyBuffer)
	a.notifier.Start()

	a.auth = services.NewAuthService(a.store)
	a.handler = &handlers.Handler{
		Auth: a.auth,
		Feeds: services.NewFeedService(a.store, cache.NewPageCache("index", backend), a.storage, services.FeedOptions{
			PageSize: conf.Feed.PageSize,
			IndexTTL: conf.Cache.IndexTTL,
		}),
		Posts:     services.NewPostService(a.store, a.storage, a.notifier),
		Comments:  services.NewCommentService(a.store),
		Follows:   services.NewFollowService(a.store),
		Groups:    services.NewGroupService(a.store),
		WS:        a.ws,
		MaxUpload: conf.Media.MaxSize,
	}
	return a, nil
}

func (a *app) close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			logger.L.Warn("Failed to close RabbitMQ", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.L.Warn("Failed to close Redis", zap.Error(err))
		}
	}
	if a.orm != nil {
		if err := db.Close(a.orm); err != nil {
			logger.L.Warn("Failed to close database", zap.Error(err))
		}
	}
}
