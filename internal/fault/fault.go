package fault

import (
	"errors"
	"fmt"

	"github.com/abenov/tenge-scan/internal/parsing"
)

// Kind identifies one of the closed set of pipeline failure kinds.
type Kind int

const (
	PDFRendering Kind = iota
	OCRExtraction
	Parsing
	Storage
	FileOperation
	EmptyText
	EngineConfig
)

// String returns a stable name for the kind, used in logs and API responses.
func (k Kind) String() string {
	switch k {
	case PDFRendering:
		return "pdf_rendering"
	case OCRExtraction:
		return "ocr_extraction"
	case Parsing:
		return "parsing"
	case Storage:
		return "storage"
	case FileOperation:
		return "file_operation"
	case EmptyText:
		return "empty_text"
	case EngineConfig:
		return "engine_config"
	default:
		return "unknown"
	}
}

// Failure is the pipeline's error type. Every failure produced by the
// renderer, orchestrator, parser boundary or controller is a *Failure so
// callers can switch on Kind instead of string-matching messages.
type Failure struct {
	Kind    Kind
	Message string

	// Path is the file the failure relates to, when there is one.
	Path string

	// Err is the original cause, kept for diagnostics.
	Err error

	// Partial carries the parsed receipt for Parsing failures where
	// extraction succeeded but no amount was found, so the caller can offer
	// manual correction instead of a re-scan.
	Partial *parsing.ParsedReceipt
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// New creates a failure of the given kind.
func New(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Wrap creates a failure of the given kind with the original cause attached.
func Wrap(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// WrapPath creates a failure that references a file path.
func WrapPath(kind Kind, message, path string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Path: path, Err: err}
}

// PartialParse creates a Parsing failure carrying the partial receipt.
func PartialParse(message string, partial *parsing.ParsedReceipt) *Failure {
	return &Failure{Kind: Parsing, Message: message, Partial: partial}
}

// KindOf reports the failure kind of err, if err is (or wraps) a *Failure.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

// As returns the *Failure wrapped in err, or nil.
func As(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}
