/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))
	eng := chatflow.New(chatflow.WithLifecycleHooks(hooks))
*/
package observability
