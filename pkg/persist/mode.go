package persist

// Mode selects where snapshots are persisted.
type Mode int

const (
	// None disables persistence: no storage is touched and no teardown hook
	// is registered.
	None Mode = iota
	// Local persists to durable storage that survives process restarts.
	Local
	// Session persists to storage scoped to the current session.
	Session
)

// String returns the mode name as it appears in configuration.
func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Local:
		return "local"
	case Session:
		return "session"
	}
	return "unknown"
}

// ParseMode parses a mode name. Unknown names fail with *InvalidConfigError.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return None, nil
	case "local":
		return Local, nil
	case "session":
		return Session, nil
	}
	return None, &InvalidConfigError{Mode: s}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
