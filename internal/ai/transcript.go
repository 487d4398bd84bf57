// SPDX-License-Identifier: MIT

package ai

import (
	"regexp"
	"strings"
	"time"
)

// Segment is one timed span of a transcript.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// HasFiller reports whether the segment contains a disfluency.
func (s Segment) HasFiller() bool {
	for _, counts := range CountFillers(s.Text) {
		if counts > 0 {
			return true
		}
	}
	return false
}

// Transcript is the timed output of a transcription.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Text joins the segments into one plain-text transcript.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// FillerWords are the disfluencies detected and stripped by the transcript
// cleanup pass.
var FillerWords = []string{"um", "uh", "like", "you know", "so"}

// CountFillers returns, per filler word, how often it occurs in text.
// Matching is case-insensitive and on word boundaries.
func CountFillers(text string) map[string]int {
	counts := make(map[string]int, len(FillerWords))
	for _, w := range FillerWords {
		re := fillerPattern(w)
		counts[w] = len(re.FindAllString(text, -1))
	}
	return counts
}

// RemoveFillers strips filler words from text, collapsing the whitespace
// they leave behind.
func RemoveFillers(text string) string {
	for _, w := range FillerWords {
		text = fillerPattern(w).ReplaceAllString(text, "")
	}
	return strings.Join(strings.Fields(text), " ")
}

func fillerPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b[,.]?`)
}

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ProcessVariables substitutes {{name}} placeholders in a template with the
// matching values. Unknown placeholders are left untouched.
func ProcessVariables(template string, vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(template, func(m string) string {
		name := variablePattern.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
