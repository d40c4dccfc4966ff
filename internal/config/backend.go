package config

// ConfigBackend is where persisted settings live between runs. On macOS it
// is the binbuddy UserDefaults domain, elsewhere a JSON file under
// XDG_CONFIG_HOME. Float keys are stored as strings.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	// Delete removes key so the built-in default applies again.
	Delete(key string) error
}
