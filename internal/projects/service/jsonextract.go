package service

import "regexp"

// Models are asked for a single JSON object but routinely wrap it in prose.
// The greedy match spans from the first "{" to the last "}".
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSONObject returns the first top-level {...} span in raw, or
// ("", false) when none exists.
func extractJSONObject(raw string) (string, bool) {
	span := jsonObjectPattern.FindString(raw)
	if span == "" {
		return "", false
	}
	return span, true
}
