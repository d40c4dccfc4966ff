//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// secretsFile stands in for the macOS Keychain: a 0600 JSON file mapping
// service to account to secret, next to the assistant's data.
type secretsFile struct {
	path string
}

func defaultSecretsFile() secretsFile {
	return secretsFile{path: filepath.Join(defaultDataDir(), "secrets.json")}
}

func (f secretsFile) load() (map[string]map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (f secretsFile) get(service, account string) ([]byte, error) {
	secrets, err := f.load()
	if err != nil {
		return nil, fmt.Errorf("keychain not available: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("account %q not found in service %q", account, service)
	}
	return []byte(val), nil
}

// set keeps every other stored secret. An unreadable file is replaced.
func (f secretsFile) set(service, account, value string) error {
	secrets, err := f.load()
	if err != nil || secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(f.path, out)
}

func keychainGet(service, account string) ([]byte, error) {
	return defaultSecretsFile().get(service, account)
}

func keychainSet(service, account, value string) error {
	return defaultSecretsFile().set(service, account, value)
}
