// Package escalation assembles structured escalation records from a
// terminal call failure plus its execution context.
package escalation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fenwick-run/agentctl/pkg/taxonomy"
)

// Info is the structured record produced when retries are exhausted or a
// non-retriable failure occurs.
type Info struct {
	Category      taxonomy.Category
	Provider      string
	Model         string
	LatencyMs     int64
	RetryCount    int
	ErrorMessage  string
	ErrorCode     string
	HTTPStatus    int
	HasErrorCode  bool
	HasHTTPStatus bool
	EscalatedAt   string // ISO-8601 UTC
}

// Context carries the fields needed to build an Info from an error.
type Context struct {
	Provider   string
	Model      string
	StartedAt  time.Time
	RetryCount int
}

// Build extracts message, code, status and category from err and returns
// the resulting escalation record. errorCode is only populated when the
// taxonomy-recognized system/HTTP wrapper types expose one.
func Build(err error, ctx Context) Info {
	info := Info{
		Category:     taxonomy.Categorize(err),
		Provider:     ctx.Provider,
		Model:        ctx.Model,
		LatencyMs:    time.Since(ctx.StartedAt).Milliseconds(),
		RetryCount:   ctx.RetryCount,
		ErrorMessage: messageOf(err),
		EscalatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if code, ok := codeOf(err); ok {
		info.ErrorCode = code
		info.HasErrorCode = true
	}
	if status, ok := statusOf(err); ok {
		info.HTTPStatus = status
		info.HasHTTPStatus = true
	}

	return info
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func codeOf(err error) (string, bool) {
	if se, ok := err.(*taxonomy.SystemError); ok {
		return se.Code, true
	}
	return "", false
}

func statusOf(err error) (int, bool) {
	if he, ok := err.(*taxonomy.HTTPStatusError); ok {
		return he.Status, true
	}
	type stringStatus interface{ Status() string }
	if ss, ok := err.(stringStatus); ok {
		if n, parseErr := strconv.Atoi(ss.Status()); parseErr == nil {
			return n, true
		}
	}
	return 0, false
}

// Format produces the single-line "[ESCALATION] key=value …" form,
// omitting http= and code= when absent, and always quoting the message.
func Format(info Info) string {
	var b strings.Builder
	b.WriteString("[ESCALATION] ")
	fmt.Fprintf(&b, "category=%s provider=%s model=%s latencyMs=%d retryCount=%d",
		info.Category, info.Provider, info.Model, info.LatencyMs, info.RetryCount)

	if info.HasHTTPStatus {
		fmt.Fprintf(&b, " http=%d", info.HTTPStatus)
	}
	if info.HasErrorCode {
		fmt.Fprintf(&b, " code=%s", info.ErrorCode)
	}
	fmt.Fprintf(&b, " message=%q", info.ErrorMessage)
	fmt.Fprintf(&b, " escalatedAt=%s", info.EscalatedAt)

	return b.String()
}
