package app

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	loginURLRegex      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	ansiEscapeRegex    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	ansiEscapeOSCRegex = regexp.MustCompile(`\x1b\][^\x07]*\x07`)
)

type watchState int

const (
	awaitingURL watchState = iota
	urlOpened
)

// loginURLWatcher consumes login output one line at a time and hands the
// first authorization URL to open. It never fires twice.
type loginURLWatcher struct {
	state watchState
	open  func(string)
}

func newLoginURLWatcher(open func(string)) *loginURLWatcher {
	return &loginURLWatcher{state: awaitingURL, open: open}
}

func (w *loginURLWatcher) OnLine(line string) {
	if w.state != awaitingURL {
		return
	}
	target := pickLoginURL(loginURLRegex.FindAllString(stripANSIEscapes(line), -1))
	if target == "" {
		return
	}
	w.state = urlOpened
	if w.open != nil {
		w.open(target)
	}
}

func (w *loginURLWatcher) Opened() bool {
	return w.state == urlOpened
}

// pickLoginURL returns the first https URL that is not the local callback
// listener.
func pickLoginURL(candidates []string) string {
	for _, raw := range candidates {
		cleaned := cleanLoginURL(raw)
		parsed, err := url.Parse(cleaned)
		if err != nil || parsed.Scheme != "https" || isLoopbackHost(parsed.Hostname()) {
			continue
		}
		return cleaned
	}
	return ""
}

func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func cleanLoginURL(raw string) string {
	trimmed := strings.TrimSpace(stripANSIEscapes(raw))
	return strings.TrimRight(trimmed, ".,);]>\"'")
}

func stripANSIEscapes(value string) string {
	value = ansiEscapeRegex.ReplaceAllString(value, "")
	return ansiEscapeOSCRegex.ReplaceAllString(value, "")
}
