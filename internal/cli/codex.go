package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"agent-switcher/internal/app"
	"agent-switcher/internal/tools"
)

// codexCall is one parsed `codex [account] [helper] [args...]` invocation.
type codexCall struct {
	env     *env
	cmd     *cobra.Command
	ctx     context.Context
	cwd     string
	account string
	helper  string
	args    []string
	out     io.Writer
}

func newCodexCommand(e *env) *cobra.Command {
	builtIn, _ := tools.GetBuiltIn("codex")
	return &cobra.Command{
		Use:   "codex [account] [helper|args...]",
		Short: "Run codex in its per-account container, or manage codex accounts",
		Long: `Run codex for an account, or one of the helpers:

  login      log in (--method browser|device|api-key, --force, --no-browser)
  logout     log out and move the host credential aside
  status     report whether the account is logged in (exit code)
  whoami     show the masked identity of the account
  limits     show usage limits (--all for every logged-in account)
  app        open a shell in the account container
  rebuild    build the codex image (--version, --no-cache)
  list       list accounts
  snapshots  list saved snapshots
  save       save the account credential as a snapshot
  switch     apply a snapshot to the account
  use        make the account the project default

Without an account the project default (codex_account) is used; helpers
fall back to "default".`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "--help" || args[0] == "-h") {
				return cmd.Help()
			}
			call, err := parseCodexCall(cmd, e, builtIn, args)
			if err != nil {
				return err
			}
			return call.dispatch()
		},
	}
}

func parseCodexCall(cmd *cobra.Command, e *env, builtIn tools.BuiltIn, args []string) (*codexCall, error) {
	cwd, err := workingDir()
	if err != nil {
		return nil, err
	}
	helpers := tools.HelperSet(builtIn)
	d, account, err := resolveToolAccount(e, cwd, "codex", helpers, args)
	if err != nil {
		return nil, err
	}
	call := &codexCall{
		env:     e,
		cmd:     cmd,
		ctx:     cmd.Context(),
		cwd:     cwd,
		account: account,
		helper:  "run",
		args:    d.Args,
		out:     cmd.OutOrStdout(),
	}
	if len(d.Args) > 0 && helpers[d.Args[0]] {
		call.helper = d.Args[0]
		call.args = d.Args[1:]
	}
	return call, nil
}

func (c *codexCall) dispatch() error {
	switch c.helper {
	case "run":
		return exitWith(c.env.svc.Run(c.ctx, c.account, c.cwd, c.args))
	case "login":
		return c.login()
	case "logout":
		return c.logout()
	case "status":
		return c.status()
	case "whoami":
		return c.whoami()
	case "limits":
		return c.limits()
	case "app":
		return exitWith(c.env.svc.App(c.ctx, c.account, c.cwd))
	case "rebuild":
		return c.rebuild()
	case "list":
		return c.list()
	case "snapshots":
		return c.snapshots()
	case "save":
		return c.save()
	case "switch":
		return c.switchSnapshot()
	case "use":
		return c.use()
	}
	return app.WrapExit(app.ExitUserError, fmt.Errorf("unknown codex helper %q", c.helper))
}

// flags parses helper flags. done is true when --help was printed.
func (c *codexCall) flags(define func(fs *pflag.FlagSet)) (fs *pflag.FlagSet, done bool, err error) {
	fs = pflag.NewFlagSet("codex "+c.helper, pflag.ContinueOnError)
	fs.SetOutput(c.cmd.ErrOrStderr())
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(c.args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return fs, true, nil
		}
		return nil, false, app.WrapExit(app.ExitUserError, err)
	}
	return fs, false, nil
}

func (c *codexCall) login() error {
	var method string
	var force, noBrowser bool
	_, done, err := c.flags(func(fs *pflag.FlagSet) {
		fs.StringVar(&method, "method", "browser", "Login method: browser, device or api-key")
		fs.BoolVar(&force, "force", false, "Move the existing credential aside before logging in")
		fs.BoolVar(&noBrowser, "no-browser", false, "Print the login URL instead of opening a browser")
	})
	if err != nil || done {
		return err
	}
	parsed, err := app.ParseLoginMethod(method)
	if err != nil {
		return app.WrapExit(app.ExitUserError, err)
	}
	if err := c.env.svc.Login(c.ctx, c.account, app.LoginOptions{
		Method:      parsed,
		Force:       force,
		OpenBrowser: !noBrowser,
	}); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "codex account %s logged in (%s)\n", c.account, parsed)
	return nil
}

func (c *codexCall) logout() error {
	if _, done, err := c.flags(nil); err != nil || done {
		return err
	}
	backup, err := c.env.svc.Logout(c.ctx, c.account)
	if backup != "" {
		fmt.Fprintf(c.out, "host credential moved to %s\n", backup)
	} else {
		fmt.Fprintf(c.out, "no host credential for %s\n", c.account)
	}
	return err
}

func (c *codexCall) status() error {
	if _, done, err := c.flags(nil); err != nil || done {
		return err
	}
	return exitWith(c.env.svc.Status(c.ctx, c.account))
}

func (c *codexCall) whoami() error {
	var jsonOut bool
	_, done, err := c.flags(func(fs *pflag.FlagSet) {
		fs.BoolVar(&jsonOut, "json", false, "Output JSON")
	})
	if err != nil || done {
		return err
	}
	id, err := c.env.svc.Whoami(c.account)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(c.out, id)
	}
	fmt.Fprintf(c.out, "account: %s\n", id.Account)
	fmt.Fprintf(c.out, "auth_mode: %s\n", zeroDefault(id.AuthMode, "-"))
	if id.Claims == nil {
		fmt.Fprintln(c.out, "identity: unavailable (id token could not be decoded)")
		return nil
	}
	fmt.Fprintf(c.out, "email: %s\n", zeroDefault(id.Claims.Email, "-"))
	fmt.Fprintf(c.out, "subject: %s\n", zeroDefault(id.Claims.Subject, "-"))
	fmt.Fprintf(c.out, "account_id: %s\n", zeroDefault(id.Claims.AccountID, "-"))
	fmt.Fprintf(c.out, "plan: %s\n", zeroDefault(id.Claims.PlanType, "-"))
	for _, org := range id.Claims.Organizations {
		def := ""
		if org.IsDefault {
			def = " (default)"
		}
		fmt.Fprintf(c.out, "  - %s %s role=%s%s\n", org.ID, zeroDefault(org.Title, "-"), zeroDefault(org.Role, "-"), def)
	}
	return nil
}

func (c *codexCall) limits() error {
	var all, jsonOut bool
	var timeout time.Duration
	var concurrency int
	settings := c.env.settings
	_, done, err := c.flags(func(fs *pflag.FlagSet) {
		fs.BoolVar(&all, "all", false, "Query every logged-in account")
		fs.BoolVar(&jsonOut, "json", false, "Output JSON")
		fs.DurationVar(&timeout, "timeout", settings.LimitsTimeout, "Per-account request timeout")
		fs.IntVar(&concurrency, "concurrency", settings.LimitsConcurrency, "Requests in flight")
	})
	if err != nil || done {
		return err
	}

	accounts := []string{c.account}
	if all {
		if accounts, err = c.env.svc.LoggedInAccounts(); err != nil {
			return err
		}
		if len(accounts) == 0 {
			return app.WrapExit(app.ExitUserError, errors.New("no logged-in codex accounts"))
		}
	}
	results := c.env.svc.FetchAll(c.ctx, accounts, timeout, concurrency)

	if jsonOut {
		if err := printJSON(c.out, results); err != nil {
			return err
		}
	} else if err := renderLimits(c.out, results); err != nil {
		return err
	}
	return limitsOutcome(results)
}

// limitsOutcome keeps a single failed account's own exit code; a batch with
// some failures is partial.
func limitsOutcome(results []app.LimitsResult) error {
	failed := 0
	var last app.LimitsResult
	for _, r := range results {
		if !r.OK {
			failed++
			last = r
		}
	}
	switch {
	case failed == 0:
		return nil
	case len(results) == 1:
		return app.WrapExit(app.ExitCode(last.Err), fmt.Errorf("%s: %s", last.Account, last.Error))
	case failed == len(results):
		return app.WrapExit(app.ExitIOFailure, fmt.Errorf("limits failed for all %d accounts", failed))
	}
	return app.WrapExit(app.ExitPartial, fmt.Errorf("limits failed for %d of %d accounts", failed, len(results)))
}

func renderLimits(w io.Writer, results []app.LimitsResult) error {
	t := newTable("ACCOUNT", "PLAN", "PRIMARY", "SECONDARY", "CREDITS", "STATUS")
	for _, r := range results {
		if !r.OK {
			t.add(r.Account, "-", "-", "-", "-", r.Error)
			continue
		}
		u := r.Usage
		var primary, secondary string
		status := "ok"
		if u.RateLimit != nil {
			primary = formatWindow(u.RateLimit.PrimaryWindow)
			secondary = formatWindow(u.RateLimit.SecondaryWindow)
			if u.RateLimit.LimitReached != nil && *u.RateLimit.LimitReached {
				status = "limit reached"
			}
		}
		t.add(r.Account, zeroDefault(u.PlanType, "-"), zeroDefault(primary, "-"), zeroDefault(secondary, "-"), formatCredits(u.Credits), status)
	}
	return t.render(w)
}

func formatWindow(w *app.UsageWindow) string {
	if w == nil {
		return ""
	}
	out := fmt.Sprintf("%.0f%%", w.UsedPercent)
	if w.ResetAfterSeconds != nil && *w.ResetAfterSeconds > 0 {
		out += " (resets in " + formatReset(time.Duration(*w.ResetAfterSeconds)*time.Second) + ")"
	}
	return out
}

func formatReset(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	return strings.TrimSuffix(d.Round(time.Minute).String(), "0s")
}

func formatCredits(c *app.Credits) string {
	switch {
	case c == nil:
		return "-"
	case c.Unlimited:
		return "unlimited"
	case c.Balance != nil:
		return fmt.Sprintf("%.2f", *c.Balance)
	case c.HasCredits:
		return "yes"
	}
	return "-"
}

func (c *codexCall) rebuild() error {
	var version string
	var noCache bool
	_, done, err := c.flags(func(fs *pflag.FlagSet) {
		fs.StringVar(&version, "version", "", "codex npm version to install (default latest)")
		fs.BoolVar(&noCache, "no-cache", false, "Build without the docker layer cache")
	})
	if err != nil || done {
		return err
	}
	code, err := c.env.svc.Rebuild(c.ctx, version, noCache)
	if err != nil {
		return err
	}
	if code != 0 {
		return app.WrapExit(app.ExitIOFailure, fmt.Errorf("docker build exited with status %d", code))
	}
	fmt.Fprintf(c.out, "built %s\n", c.env.settings.CodexImage)
	return nil
}

func (c *codexCall) list() error {
	var jsonOut, volumes bool
	_, done, err := c.flags(func(fs *pflag.FlagSet) {
		fs.BoolVar(&jsonOut, "json", false, "Output JSON")
		fs.BoolVar(&volumes, "volumes", false, "Also query the container engine for account volumes")
	})
	if err != nil || done {
		return err
	}
	var records []app.AccountRecord
	if volumes {
		records, err = c.env.svc.ListWithVolumes(c.ctx)
	} else {
		records, err = c.env.svc.List()
	}
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(c.out, records)
	}
	resolved, err := c.env.store.Resolve(c.cwd)
	if err != nil {
		return err
	}
	current, _ := resolved.DefaultAccount("codex")
	header := []string{"", "ACCOUNT", "CREDENTIAL"}
	if volumes {
		header = append(header, "VOLUME")
	}
	t := newTable(header...)
	for _, r := range records {
		marker := ""
		if r.Label == current {
			marker = "*"
		}
		row := []string{marker, r.Label, presence(r.HasCredential)}
		if r.HasVolume != nil {
			row = append(row, presence(*r.HasVolume))
		}
		t.add(row...)
	}
	return t.render(c.out)
}

func (c *codexCall) snapshots() error {
	var jsonOut bool
	_, done, err := c.flags(func(fs *pflag.FlagSet) {
		fs.BoolVar(&jsonOut, "json", false, "Output JSON")
	})
	if err != nil || done {
		return err
	}
	snaps, err := c.env.svc.Snapshots()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(c.out, snaps)
	}
	t := newTable("SNAPSHOT", "CREDENTIAL")
	for _, s := range snaps {
		t.add(s.Name, presence(s.HasCredential))
	}
	return t.render(c.out)
}

func (c *codexCall) save() error {
	fs, done, err := c.flags(nil)
	if err != nil || done {
		return err
	}
	if fs.NArg() != 1 {
		return app.WrapExit(app.ExitUserError, errors.New("usage: agent-switcher codex [account] save <snapshot>"))
	}
	path, err := c.env.svc.Save(c.account, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "saved %s as snapshot %s (%s)\n", c.account, fs.Arg(0), path)
	return nil
}

func (c *codexCall) switchSnapshot() error {
	fs, done, err := c.flags(nil)
	if err != nil || done {
		return err
	}
	if fs.NArg() != 1 {
		return app.WrapExit(app.ExitUserError, errors.New("usage: agent-switcher codex [account] switch <snapshot>"))
	}
	if err := c.env.svc.Switch(c.ctx, fs.Arg(0), c.account); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "applied snapshot %s to %s\n", fs.Arg(0), c.account)
	return nil
}

func (c *codexCall) use() error {
	fs, done, err := c.flags(nil)
	if err != nil || done {
		return err
	}
	account := c.account
	if fs.NArg() > 0 {
		account = fs.Arg(0)
	}
	path, err := c.env.svc.Use(c.cwd, account)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "codex_account = %s (%s)\n", account, path)
	return nil
}

// exitWith turns a child exit code into the process exit code.
func exitWith(code int, err error) error {
	if err != nil {
		return err
	}
	return app.SilentExit(code)
}

func presence(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
