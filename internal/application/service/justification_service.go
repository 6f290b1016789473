package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gsblab/gsb-frais/internal/application/port"
	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

var pdfMagic = []byte("%PDF-")

// JustificationService stores the scanned receipts of a report
type JustificationService interface {
	// Upload stores a PDF and adds its page count to the report's justification count.
	// It returns the new count.
	Upload(ctx context.Context, visitorID, month, filename string, content []byte) (int, error)
}

type justificationServiceImpl struct {
	writer    *reportWriter
	storage   port.FileStorage
	counter   port.PageCounter
	txManager port.TransactionManager
	logger    Logger
}

// NewJustificationService creates a new JustificationService
func NewJustificationService(
	reports port.ReportRepository,
	storage port.FileStorage,
	counter port.PageCounter,
	txManager port.TransactionManager,
	logger Logger,
	clock Clock,
) JustificationService {
	if clock == nil {
		clock = time.Now
	}
	return &justificationServiceImpl{
		writer:    &reportWriter{reports: reports, now: clock},
		storage:   storage,
		counter:   counter,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *justificationServiceImpl) Upload(ctx context.Context, visitorID, month, filename string, content []byte) (int, error) {
	if err := validateKey(visitorID, month); err != nil {
		return 0, err
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return 0, fmt.Errorf("%w: justification must be a PDF document", entity.ErrValidation)
	}

	report, err := s.writer.load(ctx, visitorID, month)
	if err != nil {
		return 0, err
	}
	if err := checkEditable(report, entity.RoleVisitor, false); err != nil {
		return 0, err
	}

	relPath := path.Join(visitorID, month, fmt.Sprintf("%d_%s", s.writer.now().UnixNano(), pdfName(filename)))
	if err := s.storage.Save(ctx, relPath, content); err != nil {
		s.logger.Error("Failed to store justification", "error", err, "path", relPath)
		return 0, err
	}

	pages, err := s.counter.CountPages(s.storage.FullPath(relPath))
	if err != nil {
		s.logger.Error("Failed to count justification pages", "error", err, "path", relPath)
		s.discard(ctx, relPath)
		return 0, fmt.Errorf("%w: unreadable PDF: %v", entity.ErrValidation, err)
	}

	var total int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.writer.load(txCtx, visitorID, month)
		if err != nil {
			return err
		}
		total = current.JustificationCount + pages
		ok, err := s.writer.reports.UpdateJustificationCount(txCtx, visitorID, month, total)
		if err != nil {
			return err
		}
		if !ok {
			return reportNotFound(visitorID, month)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record justification count", "error", err, "id_visiteur", visitorID, "mois", month)
		s.discard(ctx, relPath)
		return 0, err
	}

	s.logger.Info("Justification stored", "path", relPath, "pages", pages, "nb_justificatifs", total)
	return total, nil
}

// discard removes a stored upload whose count was not recorded. It runs even
// when the request context is already cancelled.
func (s *justificationServiceImpl) discard(ctx context.Context, relPath string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), relPath); err != nil {
		s.logger.Error("Failed to discard justification", "error", err, "path", relPath)
	}
}

// pdfName keeps the base name of an upload and forces the .pdf extension
func pdfName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "justificatif"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
