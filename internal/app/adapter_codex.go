package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	storeModeKey  = "cli_auth_credentials_store"
	fileStoreMode = "file"
)

// authFile is the codex credential artifact. Raw is kept so copies stay
// byte-identical.
type authFile struct {
	Raw      []byte
	AuthMode string
	APIKey   string
	Tokens   authTokens
}

type authTokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	AccountID    string
}

func (a *authFile) isAPIKey() bool {
	switch strings.ToLower(a.AuthMode) {
	case "apikey", "api_key", "api-key":
		return true
	}
	return a.APIKey != "" && a.Tokens.AccessToken == ""
}

func parseAuthFile(path string, raw []byte) (*authFile, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &CredentialError{Path: path, Msg: "credential file is not valid JSON", Err: err}
	}
	out := &authFile{Raw: raw}
	out.AuthMode, _ = data["auth_mode"].(string)
	out.APIKey, _ = data["OPENAI_API_KEY"].(string)
	if tokens, ok := data["tokens"].(map[string]any); ok {
		out.Tokens.AccessToken, _ = tokens["access_token"].(string)
		out.Tokens.IDToken, _ = tokens["id_token"].(string)
		out.Tokens.RefreshToken, _ = tokens["refresh_token"].(string)
		out.Tokens.AccountID = toString(tokens["account_id"])
	}
	return out, nil
}

// readAuthFile loads an account's host credential. A missing file is a
// CredentialError that says how to create it.
func readAuthFile(path, account string) (*authFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &CredentialError{
				Path: path,
				Msg:  fmt.Sprintf("no host credential for account %s", account),
				Hint: fmt.Sprintf("run `agent-switcher codex %s login`; api-key logins keep no host credential, use `agent-switcher codex %s status` instead", account, account),
			}
		}
		return nil, &CredentialError{Path: path, Msg: "cannot read credential", Err: err}
	}
	return parseAuthFile(path, raw)
}

// storeMode reports the credential store configured in a codex
// config.toml. Codex defaults to file storage when nothing is set.
func storeMode(configPath string) string {
	bytes, err := os.ReadFile(configPath)
	if err != nil {
		return fileStoreMode
	}
	var cfg struct {
		StoreMode string `toml:"cli_auth_credentials_store"`
	}
	if err := toml.Unmarshal(bytes, &cfg); err != nil || cfg.StoreMode == "" {
		return fileStoreMode
	}
	return strings.ToLower(strings.TrimSpace(cfg.StoreMode))
}

// ensureFileStoreMode pins the codex credential store to file so a login
// never lands in the OS keychain. Other keys are preserved.
func ensureFileStoreMode(configPath string) error {
	data := map[string]any{}
	bytes, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(bytes, &data); err != nil {
			return fmt.Errorf("parse %s: %w", configPath, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	if mode, _ := data[storeModeKey].(string); mode == fileStoreMode {
		return nil
	}
	data[storeModeKey] = fileStoreMode
	out, err := toml.Marshal(data)
	if err != nil {
		return err
	}
	if err := ensureParentDir(configPath); err != nil {
		return err
	}
	return writeFileAtomic(configPath, out, 0o600)
}
