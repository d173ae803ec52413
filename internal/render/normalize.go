// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"
)

var (
	emphasisRun  = regexp.MustCompile(`\*{3,}`)
	bulletLine   = regexp.MustCompile(`^(\s*)[-*+•]\s+`)
	numberedLine = regexp.MustCompile(`^(\s*)(\d+)\.\s+`)

	// RE2 has no backreferences, so each break character is spelled out.
	thematicBreak = regexp.MustCompile(`^\s*(?:(?:\*\s*){3,}|(?:-\s*){3,}|(?:_\s*){3,})$`)
)

// BulletMarker is the canonical list marker produced by Normalize.
const BulletMarker = "- "

// Normalize cleans up common formatting problems in assistant text before it
// reaches the interpreter:
//   - runs of three or more '*' collapse to "**"
//   - bullet markers (-, *, +, •) become BulletMarker
//   - a blank line is inserted before a bullet that directly follows prose,
//     so the interpreter starts a new list instead of continuing the paragraph
//   - numbered markers keep their number and get exactly one trailing space
//
// Fenced code blocks and thematic breaks ("* * *", "---") are left untouched.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+4)

	inFence := false
	afterProse := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out = append(out, line)
			afterProse = false
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		if thematicBreak.MatchString(line) {
			out = append(out, line)
			afterProse = false
			continue
		}

		line = emphasisRun.ReplaceAllString(line, "**")

		isItem := false
		if loc := bulletLine.FindStringSubmatchIndex(line); loc != nil {
			indent := line[loc[2]:loc[3]]
			line = indent + BulletMarker + line[loc[1]:]
			if afterProse {
				out = append(out, "")
			}
			isItem = true
		} else if numberedLine.MatchString(line) {
			line = numberedLine.ReplaceAllString(line, "${1}${2}. ")
			isItem = true
		}

		out = append(out, line)
		afterProse = !isItem && strings.TrimSpace(line) != ""
	}

	return strings.Join(out, "\n")
}
