// SPDX-License-Identifier: MIT

package output

import "strings"

// Metadata is the generated description of a recording.
type Metadata struct {
	Title         string   `json:"title"`
	Transcription string   `json:"transcription"`
	Summary       string   `json:"summary"`
	Tags          []string `json:"tags"`
	Topics        []string `json:"topics"`
}

// NormalizeTags lowercases and trims tags and drops duplicates and empty
// entries, preserving first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
