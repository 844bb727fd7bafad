package scanning

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/abenov/tenge-scan/internal/fault"
)

// minTextLength is the shortest primary-engine output accepted without
// consulting the fallback engine.
const minTextLength = 50

// Quality score weights. Length contribution is capped so a long page of
// garbage cannot outscore a short text full of receipt markers.
const (
	lengthScoreCap   = 30.0
	lengthScoreDiv   = 10.0
	keywordScoreEach = 15.0
	amountScoreEach  = 10.0
)

// receiptKeywords are multilingual tokens that appear on receipts and bank
// cheques. Matching any of them is a strong signal the engine actually read
// the document.
var receiptKeywords = []string{
	"итого", "сумма", "всего", "чек", "оплата", "оплачено", "касса",
	"терминал", "продавец", "квитанция", "сдача", "тенге",
	"kaspi", "halyk", "каспи", "халык",
	"total", "sum", "paid",
}

// amountShapeRe matches substrings resembling a monetary amount.
var amountShapeRe = regexp.MustCompile(`\d{2,}(?:[.,]\d+)?`)

// Orchestrator runs the primary engine, judges the output, and conditionally
// consults the fallback engine, returning whichever text scores better.
// Engines are constructed lazily on first use and reused across calls.
type Orchestrator struct {
	primaryFactory  EngineFactory
	fallbackFactory EngineFactory

	primary  Engine
	fallback Engine
}

// NewOrchestrator creates an orchestrator over two engine factories. The
// primary engine runs first on every extraction; the fallback only when the
// primary's output fails the quality heuristics.
func NewOrchestrator(primary, fallback EngineFactory) *Orchestrator {
	return &Orchestrator{
		primaryFactory:  primary,
		fallbackFactory: fallback,
	}
}

// ExtractText produces the best available raw text for the image at path.
func (o *Orchestrator) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return "", fault.WrapPath(fault.OCRExtraction, "image file not found", imagePath, err)
	}

	primaryText := o.recognize(ctx, &o.primary, o.primaryFactory, "primary", imagePath)

	if primaryText != "" && !needsFallback(primaryText) {
		return primaryText, nil
	}

	fallbackText := o.recognize(ctx, &o.fallback, o.fallbackFactory, "fallback", imagePath)

	switch {
	case primaryText == "" && fallbackText == "":
		return "", fault.WrapPath(fault.EmptyText, "no text recognized by either engine", imagePath, nil)
	case primaryText == "":
		return fallbackText, nil
	case fallbackText == "":
		return primaryText, nil
	}

	// Ties favor the primary result: it ran first and is cheaper.
	if qualityScore(fallbackText) > qualityScore(primaryText) {
		return fallbackText, nil
	}
	return primaryText, nil
}

// recognize lazily constructs the engine in slot and runs it. Engine-level
// errors are logged and yield an empty string, never aborting the run.
func (o *Orchestrator) recognize(ctx context.Context, slot *Engine, factory EngineFactory, role, imagePath string) string {
	if *slot == nil {
		engine, err := factory()
		if err != nil {
			slog.Error("Failed to construct engine", "role", role, "error", err)
			return ""
		}
		*slot = engine
	}

	text, err := (*slot).Recognize(ctx, imagePath)
	if err != nil {
		slog.Error("Engine recognition failed", "engine", (*slot).Name(), "role", role, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// needsFallback applies the three independent quality heuristics to the
// primary engine's output.
func needsFallback(text string) bool {
	if utf8.RuneCountInString(text) < minTextLength {
		return true
	}
	if countKeywords(text) == 0 {
		return true
	}
	if len(amountShapeRe.FindAllString(text, -1)) == 0 {
		return true
	}
	return false
}

// qualityScore rates recognized text by length (capped), receipt keyword
// hits, and amount-shaped numeric substrings.
func qualityScore(text string) float64 {
	lengthScore := float64(utf8.RuneCountInString(text)) / lengthScoreDiv
	if lengthScore > lengthScoreCap {
		lengthScore = lengthScoreCap
	}
	keywordScore := float64(countKeywords(text)) * keywordScoreEach
	amountScore := float64(len(amountShapeRe.FindAllString(text, -1))) * amountScoreEach
	return lengthScore + keywordScore + amountScore
}

func countKeywords(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range receiptKeywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Close releases both engines, if they were ever constructed.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, e := range []Engine{o.primary, o.fallback} {
		if e == nil {
			continue
		}
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.primary = nil
	o.fallback = nil
	return firstErr
}
