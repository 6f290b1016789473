package port

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gsblab/gsb-frais/internal/domain/entity"
)

// PasswordHasher hashes and verifies passwords with one adaptive scheme
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenIssuer creates and checks session tokens for authenticated identities
type TokenIssuer interface {
	Issue(identity *entity.Identity) (token string, expiresAt time.Time, err error)
	Parse(token string) (*entity.Identity, error)
}

// FileStorage persists uploaded and generated files under a base directory
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	FullPath(path string) string
}

// PageCounter counts the pages of a justification document
type PageCounter interface {
	CountPages(path string) (int, error)
}

// ReportSheet is everything needed to render one report for an accountant
type ReportSheet struct {
	Visitor   *entity.Visitor
	Report    *entity.ExpenseReport
	FlatRates []entity.FlatRateDetail
	Itemized  []*entity.ItemizedLine
	Total     decimal.Decimal
}

// SheetWriter renders a report sheet into a document
type SheetWriter interface {
	Write(sheet *ReportSheet, w io.Writer) error
}
