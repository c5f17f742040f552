package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"agent-switcher/internal/config"
)

// FetchAll queries usage for every account with at most concurrency
// requests in flight. Results are in input order and every slot is filled:
// per-account failures are recorded, never returned.
func (s *Service) FetchAll(ctx context.Context, accounts []string, timeout time.Duration, concurrency int) []LimitsResult {
	results := make([]LimitsResult, len(accounts))
	if len(accounts) == 0 {
		return results
	}
	workers := min(max(concurrency, 1), len(accounts))

	var cursor atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(accounts) {
					return
				}
				results[i] = s.FetchOne(ctx, accounts[i], timeout)
			}
		}()
	}
	wg.Wait()
	return results
}

// FetchOne queries usage for a single account under a hard timeout.
func (s *Service) FetchOne(ctx context.Context, account string, timeout time.Duration) LimitsResult {
	if timeout <= 0 {
		timeout = s.settings.LimitsTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	usage, err := s.accountUsage(ctx, account)
	if err != nil {
		s.log.WithField("account", account).WithError(err).Debug("limits fetch failed")
		return LimitsResult{Account: account, OK: false, Error: err.Error(), Err: err}
	}
	return LimitsResult{Account: account, OK: true, Usage: usage}
}

var errAPIKeyLimits = &UnsupportedError{Op: "limits", Why: "api-key accounts have no ChatGPT usage data"}

func (s *Service) accountUsage(ctx context.Context, account string) (*Usage, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return nil, WrapExit(ExitUserError, err)
	}
	path := s.layout.CodexAuthPath(account)
	auth, err := readAuthFile(path, account)
	if err != nil {
		if !fileExists(path) && s.volumeHoldsAPIKey(ctx, account) {
			return nil, errAPIKeyLimits
		}
		return nil, err
	}
	if auth.isAPIKey() {
		return nil, errAPIKeyLimits
	}
	if auth.Tokens.AccessToken == "" {
		return nil, &CredentialError{Path: path, Msg: "credential has no access token", Hint: "log in again with --force"}
	}
	accountID := extractAccountID(parseJWTClaims(auth.Tokens.IDToken))
	if accountID == "" {
		accountID = auth.Tokens.AccountID
	}
	return fetchUsage(ctx, s.http, s.settings.UsageURL, auth.Tokens.AccessToken, accountID)
}

// volumeHoldsAPIKey reports whether the account volume carries an api-key
// credential. Api-key logins write only there. Accounts without a labeled
// volume are answered without touching the runtime further, so no volume
// is created as a side effect.
func (s *Service) volumeHoldsAPIKey(ctx context.Context, account string) bool {
	if s.volumes == nil {
		return false
	}
	logger := s.log.WithField("account", account)
	names, err := s.volumes.VolumesLabeled(ctx, codexLabels(account))
	if err != nil {
		logger.WithError(err).Debug("volume lookup failed")
		return false
	}
	if len(names) == 0 {
		return false
	}
	image, err := s.helperImage(ctx)
	if err != nil {
		return false
	}
	raw, err := s.volumes.ReadVolumeFile(ctx, s.volumeAuthFile(account, image))
	if err != nil {
		logger.WithError(err).Debug("volume credential not readable")
		return false
	}
	auth, err := parseAuthFile(codexVolume(account)+":"+authFileName, raw)
	if err != nil {
		return false
	}
	return auth.isAPIKey()
}
