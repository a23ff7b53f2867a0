package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khovattu/khovattu/internal/documents"
	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/masterdata/products"
	mdshared "github.com/khovattu/khovattu/internal/masterdata/shared"
)

const (
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF   = "application/pdf"
)

// ProductSource lists the catalog.
type ProductSource interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]products.Product, error)
}

// DocumentSource loads one receipt or issue.
type DocumentSource interface {
	Get(ctx context.Context, kind documents.Kind, id int64) (documents.Document, error)
}

// StockSource lists ledger rows.
type StockSource interface {
	ListInventory(ctx context.Context, filter inventory.InventoryFilter) ([]inventory.StockRow, error)
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Service builds Excel and PDF exports.
type Service struct {
	products  ProductSource
	documents DocumentSource
	stock     StockSource
	pdf       Renderer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. pdf may be nil, in which case PDF exports fail.
func NewService(products ProductSource, documents DocumentSource, stock StockSource, pdf Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, documents: documents, stock: stock, pdf: pdf, logger: logger, now: time.Now}
}

// listName names a list export so repeated downloads do not collide.
func (s *Service) listName(prefix, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s", prefix, s.now().Format("20060102"), uuid.NewString()[:8], ext)
}

func (s *Service) ProductsExcel(ctx context.Context) (File, error) {
	items, err := s.products.List(ctx, mdshared.ListFilters{})
	if err != nil {
		return File{}, err
	}
	body, err := ProductsWorkbook(items)
	if err != nil {
		return File{}, fmt.Errorf("export: products workbook: %w", err)
	}
	return File{Name: s.listName("products", "xlsx"), ContentType: ContentTypeExcel, Body: body}, nil
}

func (s *Service) ProductsPDF(ctx context.Context) (File, error) {
	items, err := s.products.List(ctx, mdshared.ListFilters{})
	if err != nil {
		return File{}, err
	}
	html, err := productsHTML(items, s.now())
	if err != nil {
		return File{}, fmt.Errorf("export: products html: %w", err)
	}
	body, err := s.render(ctx, html)
	if err != nil {
		return File{}, err
	}
	return File{Name: s.listName("products", "pdf"), ContentType: ContentTypePDF, Body: body}, nil
}

func (s *Service) DocumentExcel(ctx context.Context, kind documents.Kind, id int64) (File, error) {
	doc, err := s.documents.Get(ctx, kind, id)
	if err != nil {
		return File{}, err
	}
	body, err := DocumentWorkbook(doc)
	if err != nil {
		return File{}, fmt.Errorf("export: %s workbook: %w", kind, err)
	}
	return File{Name: doc.Code + ".xlsx", ContentType: ContentTypeExcel, Body: body}, nil
}

func (s *Service) DocumentPDF(ctx context.Context, kind documents.Kind, id int64) (File, error) {
	doc, err := s.documents.Get(ctx, kind, id)
	if err != nil {
		return File{}, err
	}
	html, err := documentHTML(doc)
	if err != nil {
		return File{}, fmt.Errorf("export: %s html: %w", kind, err)
	}
	body, err := s.render(ctx, html)
	if err != nil {
		return File{}, err
	}
	return File{Name: doc.Code + ".pdf", ContentType: ContentTypePDF, Body: body}, nil
}

func (s *Service) InventoryExcel(ctx context.Context) (File, error) {
	rows, err := s.stock.ListInventory(ctx, inventory.InventoryFilter{})
	if err != nil {
		return File{}, err
	}
	body, err := InventoryWorkbook(rows)
	if err != nil {
		return File{}, fmt.Errorf("export: inventory workbook: %w", err)
	}
	return File{Name: s.listName("inventory", "xlsx"), ContentType: ContentTypeExcel, Body: body}, nil
}

func (s *Service) render(ctx context.Context, html string) ([]byte, error) {
	if s.pdf == nil {
		return nil, ErrPDFDisabled
	}
	start := time.Now()
	body, err := s.pdf.RenderHTML(ctx, html)
	if err != nil {
		s.logger.Error("pdf render failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrPDFFailed, err)
	}
	s.logger.Debug("pdf rendered", slog.Int("bytes", len(body)), slog.Duration("took", time.Since(start)))
	return body, nil
}
