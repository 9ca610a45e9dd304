package cachesvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// New returns the cache selected by conf.Cache.Engine, with a close function.
func New(ctx context.Context, conf *core.Config) (core.Cache, func() error, error) {
	switch conf.Cache.Engine {
	case "redis":
		client, err := NewRedisClient(ctx, conf.Cache)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisCache(client, conf.Cache.Prefix), client.Close, nil
	case "none", "":
		return NoopCache{}, func() error { return nil }, nil
	default:
		return nil, nil, errors.Errorf("unknown cache engine %q", conf.Cache.Engine)
	}
}
