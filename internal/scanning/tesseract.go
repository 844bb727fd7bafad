package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/abenov/tenge-scan/internal/fault"
)

// rasterDPI matches the renderer's output so Tesseract's layout heuristics
// see the correct scale.
const rasterDPI = 144

// Tesseract implements Engine using a local Tesseract install. It is the
// script-specialized engine: with rus+kaz traineddata it reads Cyrillic
// receipts that general-purpose recognition garbles. The traineddata files
// are plain files under the tessdata prefix.
type Tesseract struct {
	client *gosseract.Client
}

// NewTesseract creates a Tesseract engine. languages are traineddata names
// joined for recognition (default rus+kaz+eng); tessdataPrefix overrides the
// default traineddata location when non-empty.
func NewTesseract(tessdataPrefix string, languages []string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"rus", "kaz", "eng"}
	}

	client := gosseract.NewClient()
	if tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(tessdataPrefix); err != nil {
			client.Close()
			return nil, fault.Wrap(fault.EngineConfig, "setting tessdata prefix", err)
		}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fault.Wrap(fault.EngineConfig,
			fmt.Sprintf("setting languages %s", strings.Join(languages, "+")), err)
	}

	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize runs OCR on the image at path and returns the raw text.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if err := t.client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := t.client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(rasterDPI)); err != nil {
		return "", fmt.Errorf("set dpi: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the native recognizer.
func (t *Tesseract) Close() error {
	return t.client.Close()
}
