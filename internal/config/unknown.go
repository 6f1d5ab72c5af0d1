package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxSuggestionDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxSuggestionDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	"server": true, "department": true, "poll_interval": true,
	"grace_period": true, "fixture": true, "notify_url": true,
	"log_level": true,
}

// knownKeysList is the sorted slice form of knownKeys for edit-distance
// matching. Sorted for deterministic suggestions when two candidates have
// the same distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys fails on any key the decoder did not map to a Config
// field, suggesting the closest known key when one is within edit distance.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(undecoded))

	for _, key := range undecoded {
		name := key.String()

		if suggestion := closestKey(name); suggestion != "" {
			msgs = append(msgs, fmt.Sprintf("unknown key %q (did you mean %q?)", name, suggestion))
		} else {
			msgs = append(msgs, fmt.Sprintf("unknown key %q", name))
		}
	}

	return fmt.Errorf("config contains unknown keys:\n  %s", strings.Join(msgs, "\n  "))
}

// closestKey returns the known key nearest to name, or "" if none is within
// maxSuggestionDistance.
func closestKey(name string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1

	for _, candidate := range knownKeysList {
		if d := levenshtein(name, candidate); d < bestDist {
			best = candidate
			bestDist = d
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings with the
// classic two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}

		prev, cur = cur, prev
	}

	return prev[len(b)]
}
