// Package health reports whether a directory client can do its job.
//
// A Checker reports one component's Status: Healthy, Degraded or
// Unhealthy. The package ships checkers for the persistence port (a
// write/read/remove probe), the backend API (a reachability request) and
// the response cache (fill level and persistence errors). An Aggregator
// runs several checkers concurrently under one deadline and folds their
// results into an overall status and a JSON-ready Report.
//
//	agg := health.NewAggregator()
//	agg.Register("port", health.NewPortChecker(store))
//	agg.Register("api", health.NewAPIChecker(health.APICheckerConfig{URL: base}))
//	agg.Register("cache", health.NewCacheChecker(cacheStore, health.CacheCheckerConfig{}))
//
//	report := agg.Report(ctx)
//	fmt.Println(report.Status)
package health
