package cli

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/lighthttp/internal/config"
	"github.com/matzehuels/lighthttp/pkg/cache"
	"github.com/matzehuels/lighthttp/pkg/errors"
)

// openStore connects the distributed backend named by backend. The returned
// close function releases the connection and is never nil.
func (c *CLI) openStore(ctx context.Context, backend string) (cache.StringStore, func(), error) {
	noop := func() {}
	cc := c.cfg.Cache

	switch backend {
	case config.BackendNone:
		return cache.Null{}, noop, nil

	case config.BackendFile:
		dir, err := c.fileCacheDir()
		if err != nil {
			return nil, noop, errors.Wrap(errors.ErrCodeCache, err, "resolve cache dir")
		}
		s, err := cache.NewFile(dir)
		return s, noop, err

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, errors.Wrap(errors.ErrCodeCache, err, "connect to redis at %s", cc.Redis.Addr)
		}
		c.Logger.Debug("connected to redis", "addr", cc.Redis.Addr, "db", cc.Redis.DB)
		return cache.NewRedis(client, cc.Prefix), func() { client.Close() }, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cc.Mongo.URI))
		if err != nil {
			return nil, noop, errors.Wrap(errors.ErrCodeCache, err, "connect to mongo")
		}
		closeFn := func() { client.Disconnect(context.Background()) }
		if err := client.Ping(ctx, nil); err != nil {
			closeFn()
			return nil, noop, errors.Wrap(errors.ErrCodeCache, err, "ping mongo")
		}
		s, err := cache.NewMongo(ctx, client.Database(cc.Mongo.Database).Collection(cc.Mongo.Collection))
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		c.Logger.Debug("connected to mongo", "database", cc.Mongo.Database, "collection", cc.Mongo.Collection)
		return s, closeFn, nil
	}

	return nil, noop, errors.New(errors.ErrCodeUnsupported, "cache backend %q has no shared store", backend)
}
