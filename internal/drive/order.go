package drive

import (
	"sort"
	"strings"
)

// SortFrames orders image items by the numeric token after the first
// underscore in their names (TLS_000123.jpg → 123), falling back to name
// ordering when no token parses. Frame order determines playback order in
// the encoded video, so this must be stable regardless of listing order.
func SortFrames(items []ItemRef) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := frameNumber(items[i].Name)
		b, bok := frameNumber(items[j].Name)
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return items[i].Name < items[j].Name
	})
}

func frameNumber(name string) (int64, bool) {
	_, rest, found := strings.Cut(name, "_")
	if !found {
		return 0, false
	}
	var n int64
	seen := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
		seen = true
	}
	return n, seen
}
