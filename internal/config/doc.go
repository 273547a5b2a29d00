// Package config loads the rstore CLI configuration.
//
// The configuration lives in rstore.json (or rstore.yaml) next to the
// application. Every scalar field can be overridden from the environment
// with an RSTORE_ prefix.
//
// # Configuration File Structure
//
//	{
//	  "persist": "local",
//	  "key": "rstore",
//	  "data": {
//	    "count": 0,
//	    "user": {"name": "ada"}
//	  },
//	  "storage": {
//	    "local": {"driver": "badger", "path": ".rstore"},
//	    "session": {"driver": "memory"}
//	  },
//	  "inspector": {"addr": "localhost:7070", "metrics": true},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// # Environment Overrides
//
//	RSTORE_PERSIST=session
//	RSTORE_LOCAL_DRIVER=sqlite RSTORE_LOCAL_PATH=state.db
//	RSTORE_SESSION_DRIVER=s3 RSTORE_SESSION_BUCKET=snapshots
//	RSTORE_INSPECTOR_ADDR=:8080
//	RSTORE_LOG_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	boot, err := cfg.Bootstrap()
package config
