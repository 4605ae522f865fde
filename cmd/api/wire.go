package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/accounts-api/internal/auth"
	"github.com/redmonkez12/accounts-api/internal/config"
	"github.com/redmonkez12/accounts-api/internal/database"
	"github.com/redmonkez12/accounts-api/internal/logging"
	"github.com/redmonkez12/accounts-api/internal/media"
	"github.com/redmonkez12/accounts-api/internal/user"
)

// initStore builds the configured user store, wrapping it with the redis
// list cache when enabled. The returned func releases every connection.
func initStore(ctx context.Context, cfg *config.Config, logger *logging.Logger, migrate bool) (user.Store, func(), error) {
	var (
		store   user.Store
		closers []func()
	)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Database.Driver {
	case config.StoreDriverPostgres:
		sqlDB, err := database.OpenPostgres(ctx, cfg.Database.ConnectionString(), database.DefaultPool)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { sqlDB.Close() })

		if migrate {
			if err := database.Migrate(ctx, sqlDB); err != nil {
				closeAll()
				return nil, nil, err
			}
		}

		store = user.NewRepository(database.NewBunDB(sqlDB))

	case config.StoreDriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })

		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		if migrate {
			if err := database.EnsureUserIndexes(ctx, coll); err != nil {
				closeAll()
				return nil, nil, err
			}
		}

		store = user.NewMongoRepository(coll)

	case config.StoreDriverMemory:
		logger.Warn("using in-memory user store, data is lost on restart")
		store = user.NewMemoryRepository()

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled {
		client, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })

		store = user.NewCachedRepository(store, client, cfg.Redis.CacheTTL, logger)
	}

	return store, closeAll, nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

func newPasswordHasher(cfg config.AuthConfig) auth.PasswordHasher {
	if cfg.PasswordHasher == config.PasswordHasherArgon2 {
		return auth.NewArgon2Hasher()
	}
	return auth.NewBcryptHasher(cfg.BcryptCost)
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenStrategy {
	case config.TokenStrategyPaseto:
		return auth.NewPasetoService([]byte(cfg.PasetoKey))
	case config.TokenStrategyJWT:
		return auth.NewJWTService([]byte(cfg.JWTSecret))
	default:
		return nil, fmt.Errorf("unknown token strategy %q", cfg.TokenStrategy)
	}
}

// newImageStore returns the image store and, for the local backend, the directory to serve.
func newImageStore(ctx context.Context, cfg config.UploadConfig) (media.Store, string, error) {
	switch cfg.Backend {
	case config.UploadBackendS3:
		store, err := media.NewS3Store(ctx, media.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	case config.UploadBackendLocal:
		store, err := media.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}
