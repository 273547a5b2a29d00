// Package inspect exposes a store over HTTP for debugging and tooling.
//
// Mount the inspector next to the application or serve it alone:
//
//	s := store.New()
//	srv := &http.Server{Addr: ":7070", Handler: inspect.New(s, inspect.WithGatherer(reg))}
//
// Watch a slot from a shell:
//
//	websocat ws://localhost:7070/slots/count/watch
//	{"name":"count","value":0}
//	{"name":"count","value":1}
package inspect
