package app

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maskMarker   = "…"
	maskIDPrefix = 8
)

var snapshotNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func validateSnapshotName(name string) error {
	if name == "" {
		return fmt.Errorf("snapshot name is required")
	}
	if !snapshotNamePattern.MatchString(name) {
		return fmt.Errorf("invalid snapshot name %q (allowed: letters, numbers, ., _, -)", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}

// maskEmail keeps the first and last character of the local part and the
// whole domain: roshan@example.com -> r…n@example.com.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return maskID(email)
	}
	local := []rune(email[:at])
	domain := email[at:]
	if len(local) <= 2 {
		return string(local[0]) + maskMarker + domain
	}
	return string(local[0]) + maskMarker + string(local[len(local)-1]) + domain
}

// maskID keeps a fixed-length prefix. Ids no longer than the prefix keep
// half of their characters.
func maskID(id string) string {
	runes := []rune(id)
	if len(runes) == 0 {
		return ""
	}
	keep := maskIDPrefix
	if len(runes) <= keep {
		keep = len(runes) / 2
	}
	return string(runes[:keep]) + maskMarker
}
