package scanning

import "context"

// Engine is one text-recognition strategy: image file in, raw text out.
// Implementations hold native or remote resources and must be closed.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string
	// Recognize extracts text from the image at path. An empty string with
	// a nil error means the engine found no text.
	Recognize(ctx context.Context, imagePath string) (string, error)
	// Close releases recognizer resources.
	Close() error
}

// EngineFactory defers engine construction so the orchestrator can
// instantiate engines lazily and reuse them across calls.
type EngineFactory func() (Engine, error)
