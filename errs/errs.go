// Package errs defines the error taxonomy shared by the tutoring pipeline.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the pipeline concern that produced it.
type Kind string

const (
	KindExtraction     Kind = "extraction"
	KindChunking       Kind = "chunking"
	KindEmbedding      Kind = "embedding"
	KindIndexBusy      Kind = "index_busy"
	KindTranscription  Kind = "transcription"
	KindGeneration     Kind = "generation"
	KindSynthesis      Kind = "synthesis"
	KindConfiguration  Kind = "configuration"
	KindInvalidRequest Kind = "invalid_request"
)

// Error carries a kind, an optional pipeline stage, and a wrapped cause.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s [stage %s]", e.Kind, e.Stage)
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return prefix
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind with a human-readable message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewStage returns an Error tagged with the pipeline stage it belongs to.
func NewStage(kind Kind, stage, msg string) error {
	return &Error{Kind: kind, Stage: stage, Msg: msg}
}

// Wrap annotates err with a kind and message, preserving the cause chain.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WrapStage annotates err with a kind and the pipeline stage it failed in.
func WrapStage(kind Kind, stage, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Stage: stage, Msg: msg, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain, or "" when
// err carries no taxonomy information.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StageOf reports the stage tag of the outermost *Error in err's chain.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// IsKind reports whether err's chain contains an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Err
		if err == nil {
			break
		}
	}
	return false
}
