// Package persist snapshots store values to a storage backend and restores
// them on startup.
//
// A snapshot is a flat JSON object mapping each slot name to its current
// value, stored under a single key (DefaultKey unless configured). There is
// no metadata, no subscriber data and no version field.
//
// # Modes
//
//   - None: nothing is read, written or registered
//   - Local: the backend set with WithLocal, expected to be durable
//   - Session: the backend set with WithSession, scoped to one session
//
// # Lifecycle
//
// Enable restores the snapshot (overwriting slots already created by the
// caller) and registers one hook on the Lifecycle. When the host signals
// termination the hook writes the snapshot back, at most once, within the
// flush timeout. Write failures at teardown are logged and reported to the
// Observer; they never reach store callers.
//
//	adapter := persist.New(
//	    persist.WithLocal(badgerBackend),
//	    persist.WithSession(storage.NewMemory()),
//	    persist.WithLifecycle(hooks),
//	)
package persist
