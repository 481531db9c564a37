package storage

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9.]`)

// SanitizeName replaces every character outside [A-Za-z0-9.] with '_'.
func SanitizeName(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// keyHashLen is how much of the content fingerprint goes into a key.
const keyHashLen = 8

// ObjectKey builds the bucket-root key "<unix-millis>-<hash prefix>-<sanitized name>".
// The hash prefix keeps different content uploaded under the same name in the
// same millisecond from sharing a key.
func ObjectKey(now time.Time, fingerprint, name string) string {
	prefix := SanitizeName(fingerprint)
	if len(prefix) > keyHashLen {
		prefix = prefix[:keyHashLen]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + prefix + "-" + SanitizeName(name)
}

// JoinURL appends key to a public base URL.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(key)
}

// KeyFromURL recovers the object key from a stored public URL: the last path segment.
func KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	p := u.EscapedPath()
	if p == "" || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("file url %q has no object key", raw)
	}
	key, err := url.PathUnescape(path.Base(p))
	if err != nil {
		return "", fmt.Errorf("file url %q: %w", raw, err)
	}
	return key, nil
}
