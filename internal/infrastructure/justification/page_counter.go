// Package justification reads the scanned receipts visitors upload with a report.
package justification

import (
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/gsblab/gsb-frais/internal/application/port"
)

// PDFPageCounter implements port.PageCounter with mupdf.
// Each page of an uploaded PDF counts as one justification.
type PDFPageCounter struct {
	maxPages int
	logger   *zap.Logger
}

// NewPDFPageCounter creates a counter. maxPages <= 0 disables the limit.
func NewPDFPageCounter(maxPages int, logger *zap.Logger) *PDFPageCounter {
	return &PDFPageCounter{maxPages: maxPages, logger: logger}
}

// CountPages opens the document at path and returns its page count
func (c *PDFPageCounter) CountPages(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("justification not found: %w", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		c.logger.Error("Failed to open PDF", zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages <= 0 {
		return 0, fmt.Errorf("PDF has no pages: %s", path)
	}
	if c.maxPages > 0 && pages > c.maxPages {
		return 0, fmt.Errorf("PDF has %d pages, limit is %d", pages, c.maxPages)
	}

	c.logger.Debug("Counted justification pages", zap.String("path", path), zap.Int("pages", pages))
	return pages, nil
}

var _ port.PageCounter = (*PDFPageCounter)(nil)
