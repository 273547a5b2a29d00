package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid rstore config file",
		Detail:   "The rstore.json or rstore.yaml file contains invalid syntax or values.",
		DocURL:   "https://rstore.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration field is missing.",
		DocURL:   "https://rstore.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The inspector address must be host:port with a port between 1 and 65535.",
		DocURL:   "https://rstore.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Unknown storage driver",
		Detail:   "Supported drivers are memory, badger, sqlite and s3.",
		DocURL:   "https://rstore.dev/docs/errors/E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid log setting",
		Detail:   "log.level must be debug, info, warn or error and log.format must be text or json.",
		DocURL:   "https://rstore.dev/docs/errors/E124",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Config file not found",
		Detail:   "No rstore.json or rstore.yaml was found in this directory or any parent.",
		DocURL:   "https://rstore.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Persistence disabled",
		Detail:   "This command needs persist set to local or session.",
		DocURL:   "https://rstore.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The inspector server stopped with an error.",
		DocURL:   "https://rstore.dev/docs/errors/E142",
	},

	// ============================================
	// Store Errors (E200-E219)
	// ============================================

	"E200": {
		Category: CategoryStore,
		Message:  "Malformed bootstrap config",
		Detail:   "The bootstrap document must be an object with a data object and an optional persist mode.",
		DocURL:   "https://rstore.dev/docs/errors/E200",
	},
	"E201": {
		Category: CategoryStore,
		Message:  "Value not set",
		Detail:   "A slot cannot hold the absent sentinel. Use null to store an empty value.",
		DocURL:   "https://rstore.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryStore,
		Message:  "Invalid persist mode",
		Detail:   "persist must be none, local or session, and the mode needs a configured storage backend.",
		DocURL:   "https://rstore.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryStore,
		Message:  "Unknown slot name",
		Detail:   "The store was built with strict names and the slot was never initialized or restored.",
		DocURL:   "https://rstore.dev/docs/errors/E203",
	},

	// ============================================
	// Storage Errors (E220-E239)
	// ============================================

	"E220": {
		Category: CategoryStorage,
		Message:  "Storage backend failed",
		Detail:   "The snapshot backend could not be opened, read or written.",
		DocURL:   "https://rstore.dev/docs/errors/E220",
	},
	"E221": {
		Category: CategoryStorage,
		Message:  "Malformed snapshot",
		Detail:   "The stored snapshot is not a flat JSON object. Clear it with 'rstore snapshot clear'.",
		DocURL:   "https://rstore.dev/docs/errors/E221",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
