package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

// SanitizeKey makes a key safe to use as a single file name.
// A key that had to be rewritten gets a hash suffix, so "news:AAPL" and
// "news_AAPL" map to different names. Long keys are shortened the same way.
func SanitizeKey(key string) string {
	s := keyReplacer.Replace(key)
	switch {
	case len(s) > 120:
		s = s[:80] + "~" + hashKey(key)
	case s != key || s == "" || s == "." || s == "..":
		s += "~" + hashKey(key)[:12]
	}
	return s
}

func hashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
