package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrModelRefusal indicates the model answered with a structured error
// payload instead of an analysis.
var ErrModelRefusal = errors.New("model returned an error payload")

// ErrEmptyResponse indicates the model returned no usable payload for the
// requested intent.
var ErrEmptyResponse = errors.New("model returned an empty payload")
