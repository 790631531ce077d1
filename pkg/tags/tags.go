// Package tags extracts normalized hashtag tokens from message text. Tags
// are the secondary index key for the message cache.
package tags

import "strings"

// Extract returns the normalized tags found in text: whitespace-delimited
// tokens that start with '#' and are longer than one character, lower-cased
// with the leading '#' stripped. The result is de-duplicated and preserves
// first-seen order.
func Extract(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, word := range strings.Fields(text) {
		if len(word) < 2 || word[0] != '#' {
			continue
		}
		tag := strings.ToLower(word[1:])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
