package telemetry

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewCallID returns a UUID for a new CallTelemetry.ID.
func NewCallID() string {
	return uuid.NewString()
}

// requestIDAlphabet avoids visually ambiguous characters (0/O, 1/l/I) so
// short request ids are easy to read aloud or retype from a terminal.
const requestIDAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const requestIDLength = 10

// NewRequestID returns a short, human-referenceable request id for
// callers that did not supply their own (e.g. an ad-hoc CLI invocation).
// It is intentionally shorter and less opaque than a UUID: operators
// read these aloud when cross-referencing a stuck request.
func NewRequestID() (string, error) {
	return gonanoid.Generate(requestIDAlphabet, requestIDLength)
}
