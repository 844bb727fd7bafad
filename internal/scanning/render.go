package scanning

import (
	"image/png"
	"log/slog"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/abenov/tenge-scan/internal/fault"
)

// renderDPI is twice the 72-point native scale of a PDF page. Oversampling
// improves recognition accuracy on statement exports.
const renderDPI = 144

// Renderer converts the first page of a PDF into a raster image file.
type Renderer interface {
	// RenderFirstPage renders page 1 to a temporary PNG and returns its
	// path. The caller owns the file and must clean it up.
	RenderFirstPage(pdfPath string) (string, error)
}

// FitzRenderer implements Renderer with MuPDF via go-fitz.
type FitzRenderer struct{}

// NewFitzRenderer creates a FitzRenderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// RenderFirstPage renders page 1 of the PDF at renderDPI to a temp PNG.
// The document handle is released on every exit path.
func (r *FitzRenderer) RenderFirstPage(pdfPath string) (string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fault.WrapPath(fault.PDFRendering, "opening pdf", pdfPath, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return "", fault.WrapPath(fault.PDFRendering, "pdf has no pages", pdfPath, nil)
	}

	img, err := doc.ImageDPI(0, renderDPI)
	if err != nil {
		return "", fault.WrapPath(fault.PDFRendering, "rendering pdf page", pdfPath, err)
	}

	out, err := os.CreateTemp("", "tenge-scan-*.png")
	if err != nil {
		return "", fault.Wrap(fault.PDFRendering, "creating raster file", err)
	}

	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fault.WrapPath(fault.PDFRendering, "encoding raster", out.Name(), err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fault.WrapPath(fault.PDFRendering, "writing raster", out.Name(), err)
	}

	return out.Name(), nil
}

// CleanupRaster deletes an intermediate raster file. Failures are logged and
// swallowed: temp storage is reclaimed by the OS eventually.
func CleanupRaster(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to delete raster file", "path", path, "error", err)
	}
}
