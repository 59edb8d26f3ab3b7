// Package truncate shrinks oversized tool-call results to fit a character
// budget, preferring a head/tail split with structure-aware boundaries so
// JSON documents are not truncated mid-token.
package truncate

import (
	"fmt"
	"strings"
)

const defaultHeadRatio = 0.6

// markerOverhead reserves space for the "\n[… truncated N chars …]\n"
// template plus slack for a large digit count N. This is an approximate
// bound: under extreme inputs the final output can be a couple of
// characters longer than maxChars.
const markerOverhead = 40

// Options configures TruncateToolResult.
type Options struct {
	HeadRatio float64 // defaults to 0.6
	JSONAware bool    // defaults handled by caller via OptionsDefault
}

// DefaultOptions returns {HeadRatio: 0.6, JSONAware: true}.
func DefaultOptions() Options {
	return Options{HeadRatio: defaultHeadRatio, JSONAware: true}
}

// TruncateToolResult shrinks a single content string to fit maxChars.
func TruncateToolResult(content string, maxChars int, opts Options) string {
	if len(content) <= maxChars {
		return content
	}
	if maxChars <= 0 {
		return "[truncated entire content]"
	}

	headRatio := opts.HeadRatio
	if headRatio == 0 {
		headRatio = defaultHeadRatio
	}

	available := maxChars - markerOverhead
	if available <= 0 {
		prefixLen := maxChars
		if prefixLen > len(content) {
			prefixLen = len(content)
		}
		return content[:prefixLen] + "\n[… truncated content …]\n"
	}

	headLen := int(float64(available) * headRatio)
	tailLen := available - headLen

	headEnd := headLen
	tailStart := len(content) - tailLen

	if opts.JSONAware && isJSONStart(content) {
		headEnd = adjustHeadBoundary(content, headEnd)
		tailStart = adjustTailBoundary(content, tailStart)
	}

	if headEnd < 0 {
		headEnd = 0
	}
	if headEnd > len(content) {
		headEnd = len(content)
	}
	if tailStart < headEnd {
		tailStart = headEnd
	}
	if tailStart > len(content) {
		tailStart = len(content)
	}

	head := content[:headEnd]
	tail := content[tailStart:]
	truncated := len(content) - len(head) - len(tail)

	return fmt.Sprintf("%s\n[… truncated %d chars …]\n%s", head, truncated, tail)
}

func isJSONStart(content string) bool {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func maxAdjust(targetLen int) int {
	adj := int(float64(targetLen) * 0.15)
	if adj > 200 {
		adj = 200
	}
	return adj
}

// adjustHeadBoundary walks the cut point backward (up to the adjustment
// cap) to the nearest "\n", ",", "}", or "]".
func adjustHeadBoundary(content string, cut int) int {
	limit := cut - maxAdjust(cut)
	if limit < 0 {
		limit = 0
	}
	for i := cut; i > limit; i-- {
		if i <= 0 || i > len(content) {
			continue
		}
		c := content[i-1]
		if c == '\n' || c == ',' || c == '}' || c == ']' {
			return i
		}
	}
	return cut
}

// adjustTailBoundary walks the cut point forward (up to the adjustment
// cap) to the nearest "\n", "{", or "[".
func adjustTailBoundary(content string, cut int) int {
	remaining := len(content) - cut
	limit := cut + maxAdjust(remaining)
	if limit > len(content) {
		limit = len(content)
	}
	for i := cut; i < limit; i++ {
		if i < 0 || i >= len(content) {
			continue
		}
		c := content[i]
		if c == '\n' || c == '{' || c == '[' {
			return i
		}
	}
	return cut
}
