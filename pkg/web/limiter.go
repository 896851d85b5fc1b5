package web

import (
	"net/http"

	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/liut/parley/pkg/services/stores"
)

// rateLimitMw limits requests per client ip, the store is redis when rc is given
func rateLimitMw(formatted string, rc stores.RedisClient) (func(http.Handler) http.Handler, error) {
	if len(formatted) == 0 {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	var store limiter.Store
	if rc != nil {
		store, err = sredis.NewStoreWithOptions(rc, limiter.StoreOptions{
			Prefix: "parley_limiter",
		})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStore()
	}
	logger().Infow("rate limit", "rate", formatted, "redis", rc != nil)
	mw := mhttp.NewMiddleware(limiter.New(store, rate))
	return mw.Handler, nil
}
