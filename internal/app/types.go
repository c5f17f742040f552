package app

import (
	"fmt"
	"strings"
)

type LoginMethod string

const (
	LoginDevice  LoginMethod = "device"
	LoginBrowser LoginMethod = "browser"
	LoginAPIKey  LoginMethod = "api-key"
)

func ParseLoginMethod(raw string) (LoginMethod, error) {
	switch m := LoginMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return LoginBrowser, nil
	case LoginDevice, LoginBrowser, LoginAPIKey:
		return m, nil
	}
	return "", fmt.Errorf("unknown login method %q (expected device, browser or api-key)", raw)
}

type LoginOptions struct {
	Method      LoginMethod
	Force       bool
	OpenBrowser bool
}

// AccountRecord is derived from the host cache on every listing.
type AccountRecord struct {
	Label         string `json:"label"`
	HasCredential bool   `json:"hasCredential"`
	// HasVolume is only set when volumes were queried.
	HasVolume *bool `json:"hasVolume,omitempty"`
}

type SnapshotRecord struct {
	Name          string `json:"name"`
	HasCredential bool   `json:"hasCredential"`
}

// Identity is what whoami prints. Every id is masked; Claims is nil when
// the id token payload could not be decoded.
type Identity struct {
	Account  string          `json:"account"`
	AuthMode string          `json:"authMode,omitempty"`
	Claims   *IdentityClaims `json:"claims"`
}

type IdentityClaims struct {
	Email         string         `json:"email,omitempty"`
	Subject       string         `json:"subject,omitempty"`
	AccountID     string         `json:"accountId,omitempty"`
	PlanType      string         `json:"planType,omitempty"`
	Organizations []Organization `json:"organizations,omitempty"`
}

type Organization struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Role      string `json:"role,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

type UsageWindow struct {
	UsedPercent        float64 `json:"usedPercent"`
	ResetAfterSeconds  *int64  `json:"resetAfterSeconds,omitempty"`
	LimitWindowSeconds *int64  `json:"limitWindowSeconds,omitempty"`
}

type RateLimit struct {
	Allowed         *bool        `json:"allowed,omitempty"`
	LimitReached    *bool        `json:"limitReached,omitempty"`
	PrimaryWindow   *UsageWindow `json:"primaryWindow,omitempty"`
	SecondaryWindow *UsageWindow `json:"secondaryWindow,omitempty"`
}

type Credits struct {
	Unlimited  bool     `json:"unlimited"`
	HasCredits bool     `json:"hasCredits"`
	Balance    *float64 `json:"balance,omitempty"`
}

type Usage struct {
	PlanType            string     `json:"planType,omitempty"`
	Email               string     `json:"email,omitempty"`
	RateLimit           *RateLimit `json:"rateLimit,omitempty"`
	CodeReviewRateLimit *RateLimit `json:"codeReviewRateLimit,omitempty"`
	Credits             *Credits   `json:"credits,omitempty"`
}

// LimitsResult is one account's outcome in a limits batch. Failures are
// data: OK is false and Error carries the message.
type LimitsResult struct {
	Account string `json:"account"`
	OK      bool   `json:"ok"`
	Usage   *Usage `json:"usage,omitempty"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// PathsInfo shows where one account's state lives.
type PathsInfo struct {
	Account        string `json:"account"`
	StateDir       string `json:"stateDir"`
	HostAuth       string `json:"hostAuth"`
	HostConfig     string `json:"hostConfig"`
	StoreMode      string `json:"storeMode"`
	Volume         string `json:"volume"`
	VolumeAuth     string `json:"volumeAuth"`
	BrowserProfile string `json:"browserProfile"`
	SnapshotRoot   string `json:"snapshotRoot"`
	CodexImage     string `json:"codexImage"`
	LastRebuild    string `json:"lastRebuild,omitempty"`
}
