// Package store is a registry of named reactive slots.
//
// A slot holds one value.Value and the listeners subscribed to it. Writing a
// different value (under value.Same) notifies every listener synchronously,
// in registration order, on the writing goroutine:
//
//	s := store.New()
//	_ = s.Initialize(ctx, &store.Config{Data: map[string]value.Value{"n": value.Int(0)}})
//
//	l := store.ListenerFunc(func() { rerender() })
//	v, sub, _ := s.Subscribe("n", l)
//	defer sub.Unsubscribe()
//
//	_ = s.Update("n", func(old value.Value) value.Value {
//	    n, _ := old.AsNumber()
//	    return value.Number(n + 1)
//	})
//
// Writing an identical value is a no-op. Writing value.NotSet fails with
// *InvalidValueError.
//
// Slots are created on first reference unless the store is built
// WithStrictNames. Attach a *persist.Adapter WithPersistence to restore the
// registry on Initialize and write it back on host termination.
package store
