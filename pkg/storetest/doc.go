// Package storetest provides testing helpers for code built on the store.
//
// # Counting Listeners
//
// A Counter records how many times it was marked dirty:
//
//	c := storetest.NewCounter()
//	s.Subscribe("n", c)
//	s.Set("n", value.Int(1))
//	storetest.ExpectCount(t, c, 1)
//
// # Persistent Stores
//
// NewPersistentStore wires a store to in-memory backends and a manual
// lifecycle, so tests decide when the host "terminates":
//
//	ps := storetest.NewPersistentStore(t)
//	ps.Store.Initialize(ctx, &store.Config{Data: data, Persist: persist.Local})
//	ps.Terminate()
//	storetest.ExpectSnapshot(t, ps.Local, `{"n":1}`)
package storetest
