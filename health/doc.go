// Package health reports whether the guard layer is fit to serve traffic.
//
// A Checker reports one component as Healthy, Degraded or Unhealthy. The
// guard-specific checkers watch cache fill level and the number of keys the
// rate limiters are tracking. An Aggregator runs every registered checker in
// parallel under a shared timeout and folds the results into one status,
// which the HTTP handlers expose as liveness, readiness and detailed
// endpoints:
//
//	agg := health.NewAggregator()
//	agg.Register("cache", health.NewCacheChecker(lru, health.CacheCheckerConfig{}))
//	agg.Register("ratelimit", health.NewLimiterChecker(manager, health.LimiterCheckerConfig{}))
//	health.RegisterHandlers(mux, agg)
package health
