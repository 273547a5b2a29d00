// Package observe exports store and persistence events as Prometheus
// metrics.
//
//	reg := prometheus.NewRegistry()
//	obs := observe.New(observe.WithRegistry(reg))
//
//	adapter := persist.New(persist.WithLocal(backend), persist.WithObserver(obs))
//	s := store.New(store.WithObserver(obs), store.WithPersistence(adapter))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package observe
