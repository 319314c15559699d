// Package errors provides the submission error taxonomy: fatal stage errors
// carry a category and user-facing copy, best-effort failures stay plain
// errors that callers log and move past.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage identifies a submission pipeline stage.
type Stage string

const (
	StageCertificate Stage = "certificate"
	StagePDF         Stage = "pdf"
	StageUpload      Stage = "upload"
	StageRecord      Stage = "record"
	StageIndex       Stage = "index"
	StageNotify      Stage = "notify"
	StageClearDraft  Stage = "clear_draft"
	StageDocuments   Stage = "documents"
)

// Category classifies the underlying failure cause.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryTimeout    Category = "timeout"
	CategoryServer     Category = "server"
	CategoryPermission Category = "permission"
	CategoryQuota      Category = "quota"
	CategoryUnknown    Category = "unknown"
)

// Guard errors surfaced before the pipeline runs.
var (
	ErrSubmitThrottled  = errors.New("submission already in progress, please wait a moment before trying again")
	ErrSignatureMissing = errors.New("signature is required before submitting")
)

// StageError is a fatal pipeline failure. Category and UserMessage are derived
// from the cause at construction time.
type StageError struct {
	Stage       Stage     `json:"stage"`
	Category    Category  `json:"category"`
	UserMessage string    `json:"userMessage"`
	Details     string    `json:"details,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	cause       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("StageError[%s/%s]: %s", e.Stage, e.Category, e.Details)
}

func (e *StageError) Unwrap() error {
	return e.cause
}

// NewStageError wraps a stage failure, classifying the cause and attaching
// the user-facing copy for that stage and category.
func NewStageError(stage Stage, cause error) *StageError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	category := Classify(details)
	return &StageError{
		Stage:       stage,
		Category:    category,
		UserMessage: userCopy(stage, category),
		Details:     details,
		Timestamp:   time.Now().UTC(),
		cause:       cause,
	}
}

// AsStageError unwraps err into a *StageError if one is in the chain.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Classify maps a raw failure reason to a category by substring matching.
// Transient-looking causes get rewritten into friendlier copy downstream.
func Classify(reason string) Category {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(lower, "network"), strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"):
		return CategoryNetwork
	case strings.Contains(lower, "500"), strings.Contains(lower, "internal server"):
		return CategoryServer
	case strings.Contains(lower, "permission"), strings.Contains(lower, "access denied"),
		strings.Contains(lower, "forbidden"):
		return CategoryPermission
	case strings.Contains(lower, "quota"), strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"):
		return CategoryQuota
	default:
		return CategoryUnknown
	}
}

var stageCopy = map[Stage]string{
	StagePDF:       "We could not prepare your application document.",
	StageUpload:    "We could not save your application. It has NOT been submitted.",
	StageRecord:    "We could not record your application.",
	StageNotify:    "We could not send the confirmation email.",
	StageDocuments: "We could not upload your documents.",
}

var categoryCopy = map[Category]string{
	CategoryNetwork:    "Please check your connection and try again.",
	CategoryTimeout:    "The request took too long. Please try again.",
	CategoryServer:     "Our servers had a hiccup. Please try again in a moment.",
	CategoryPermission: "Something went wrong on our side. Please contact support.",
	CategoryQuota:      "We are receiving a lot of applications right now. Please try again shortly.",
	CategoryUnknown:    "Please try again, or contact support if the problem persists.",
}

func userCopy(stage Stage, category Category) string {
	lead, ok := stageCopy[stage]
	if !ok {
		lead = "Something went wrong."
	}
	return lead + " " + categoryCopy[category]
}
