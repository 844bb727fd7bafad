package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abenov/tenge-scan/internal/fault"
	"github.com/abenov/tenge-scan/internal/parsing"
	"github.com/abenov/tenge-scan/internal/scanning"
	"github.com/abenov/tenge-scan/internal/transaction"
)

// ErrScanInProgress is returned when a new scan is requested while one is
// already processing. The controller is the authority here; callers must
// clear or wait.
var ErrScanInProgress = errors.New("a scan is already in progress")

// ErrNoResult is returned when Confirm is called outside the Result state.
var ErrNoResult = errors.New("no scan result to confirm")

// StateKind enumerates the scan session states.
type StateKind int

const (
	Idle StateKind = iota
	Processing
	Result
	Error
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Result:
		return "result"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// State is the session's current position in the scan lifecycle. Exactly one
// state is active at a time. An Error state from a parse that found no amount
// still carries the partial receipt so the user can correct it manually
// instead of re-scanning.
type State struct {
	Kind          StateKind
	StatusMessage string
	Receipt       *parsing.ParsedReceipt
	Failure       *fault.Failure
}

// TextExtractor produces raw text from an image file. Satisfied by
// *scanning.Orchestrator.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// IDGenerator generates unique IDs for transactions
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time { return time.Now() }

// Controller sequences acquisition, rendering, extraction, parsing and
// persistence handoff for a single scan session. At most one scan is active
// at a time. HTTP handlers call in from concurrent goroutines, so the mutex
// guards every state read and write; the Processing check and claim happen
// under the same lock acquisition.
type Controller struct {
	renderer  scanning.Renderer
	extractor TextExtractor
	db        transaction.DB

	idGenerator IDGenerator
	timeSource  TimeSource

	mu    sync.Mutex
	state State
}

// NewController creates a Controller with uuid IDs and the wall clock.
func NewController(renderer scanning.Renderer, extractor TextExtractor, db transaction.DB) *Controller {
	return NewControllerWithDeps(renderer, extractor, db, uuidGenerator{}, defaultTimeSource{})
}

// NewControllerWithDeps creates a Controller with custom dependencies for testing.
func NewControllerWithDeps(renderer scanning.Renderer, extractor TextExtractor, db transaction.DB, idGen IDGenerator, timeSrc TimeSource) *Controller {
	return &Controller{
		renderer:    renderer,
		extractor:   extractor,
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
		state:       State{Kind: Idle},
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Clear discards any in-flight or finished result and returns to Idle.
// Already-issued engine calls are not interrupted; their results are
// discarded when they complete.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Kind: Idle}
}

// begin atomically claims the session for a new scan. A scan already in
// Processing wins over the new request, including a cancelled acquisition
// (empty input path), which otherwise silently resets the session to Idle.
func (c *Controller) begin(inputPath, statusMessage string) (State, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind == Processing {
		return c.state, false, ErrScanInProgress
	}
	if inputPath == "" {
		c.state = State{Kind: Idle}
		return c.state, false, nil
	}
	c.state = State{Kind: Processing, StatusMessage: statusMessage}
	return c.state, true, nil
}

// ScanImage runs the pipeline on a photographed receipt. An empty path means
// the user cancelled acquisition: the session silently returns to Idle.
func (c *Controller) ScanImage(ctx context.Context, imagePath string) (State, error) {
	state, claimed, err := c.begin(imagePath, "extracting")
	if !claimed {
		return state, err
	}

	text, err := c.extractor.ExtractText(ctx, imagePath)
	if err != nil {
		return c.fail(err), nil
	}

	c.setProcessing("parsing")
	receipt := parsing.Parse(text, parsing.SourceCamera)
	return c.finish(receipt), nil
}

// ScanPDF runs the pipeline on a bank statement export. The optional
// filename biases source detection; the intermediate raster is cleaned up on
// every exit path.
func (c *Controller) ScanPDF(ctx context.Context, pdfPath, filename string) (State, error) {
	state, claimed, err := c.begin(pdfPath, "rendering")
	if !claimed {
		return state, err
	}

	hint := hintFromFilename(filename)

	rasterPath, err := c.renderer.RenderFirstPage(pdfPath)
	if err != nil {
		return c.fail(err), nil
	}
	defer scanning.CleanupRaster(rasterPath)

	c.setProcessing("extracting")
	text, err := c.extractor.ExtractText(ctx, rasterPath)
	if err != nil {
		return c.fail(err), nil
	}

	c.setProcessing("parsing")
	receipt := parsing.Parse(text, hint)
	return c.finish(receipt), nil
}

// Confirm hands the validated receipt to the persistence collaborator with
// the caller-chosen category and note, returning the durable transaction ID.
// On success the session resets to Idle; a persistence error becomes a
// Storage failure without losing the parsed result.
func (c *Controller) Confirm(category parsing.Category, note string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != Result || c.state.Receipt == nil {
		return "", ErrNoResult
	}
	receipt := c.state.Receipt

	now := c.timeSource.Now()
	date := now
	if receipt.Date != nil {
		date = *receipt.Date
	}

	txn := &transaction.Transaction{
		ID:            c.idGenerator.Generate(),
		AmountCents:   int(math.Round(*receipt.Amount * 100)),
		Category:      category,
		Source:        receipt.Source,
		Merchant:      receipt.Merchant,
		ReceiptNumber: receipt.ReceiptNumber,
		RawText:       receipt.RawText,
		Note:          note,
		Date:          date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := c.db.SaveTransaction(txn); err != nil {
		failure := fault.Wrap(fault.Storage, "saving transaction", err)
		c.state = State{Kind: Error, Receipt: receipt, Failure: failure}
		return "", failure
	}

	slog.Info("Transaction saved", "id", txn.ID, "amount_cents", txn.AmountCents, "category", txn.Category)
	c.state = State{Kind: Idle}
	return txn.ID, nil
}

// setProcessing advances the in-flight status message. A session cleared
// mid-scan stays Idle.
func (c *Controller) setProcessing(statusMessage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != Processing {
		return
	}
	c.state = State{Kind: Processing, StatusMessage: statusMessage}
}

// fail moves the session to Error, coercing non-pipeline errors into a
// FileOperation failure so the Error state always carries a kind.
func (c *Controller) fail(err error) State {
	failure := fault.As(err)
	if failure == nil {
		failure = fault.Wrap(fault.FileOperation, "scan step failed", err)
	}
	slog.Error("Scan failed", "kind", failure.Kind.String(), "error", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != Processing {
		// Cleared mid-scan; the outcome is discarded.
		return c.state
	}
	c.state = State{Kind: Error, Failure: failure}
	return c.state
}

// finish settles a completed parse. A parse without an amount is a
// recoverable parsing failure that still carries the partial receipt.
func (c *Controller) finish(receipt parsing.ParsedReceipt) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != Processing {
		// Cleared mid-scan; the outcome is discarded.
		return c.state
	}
	if !receipt.IsValid() {
		failure := fault.PartialParse("no amount found in recognized text", &receipt)
		c.state = State{Kind: Error, Receipt: &receipt, Failure: failure}
		return c.state
	}
	c.state = State{Kind: Result, Receipt: &receipt}
	return c.state
}

// hintFromFilename biases source detection from the original filename of an
// exported statement, e.g. "kaspi_statement_jan.pdf".
func hintFromFilename(filename string) parsing.Source {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "kaspi"):
		return parsing.SourceKaspiPDF
	case strings.Contains(lower, "halyk"):
		return parsing.SourceHalykPDF
	default:
		return parsing.SourceCamera
	}
}
