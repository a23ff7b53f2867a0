package export

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/khovattu/khovattu/internal/documents"
	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/masterdata/products"
)

const sheetName = "Sheet1"

// sheet writes rows into the first worksheet of a new workbook.
type sheet struct {
	f   *excelize.File
	row int
}

func newSheet() *sheet {
	return &sheet{f: excelize.NewFile(), row: 1}
}

func (s *sheet) title(text string) error {
	style, err := s.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	if err := s.f.SetCellValue(sheetName, fmt.Sprintf("A%d", s.row), text); err != nil {
		return err
	}
	if err := s.f.SetCellStyle(sheetName, fmt.Sprintf("A%d", s.row), fmt.Sprintf("A%d", s.row), style); err != nil {
		return err
	}
	s.row++
	return nil
}

// pair writes a label/value row used for document headers.
func (s *sheet) pair(label string, value any) error {
	return s.values(label, value)
}

func (s *sheet) header(cols ...string) error {
	style, err := s.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	start := s.row
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	if err := s.values(vals...); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(cols), start)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(sheetName, fmt.Sprintf("A%d", start), end, style)
}

func (s *sheet) values(vals ...any) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}
		if d, ok := v.(decimal.Decimal); ok {
			v = d.InexactFloat64()
		}
		if err := s.f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

func (s *sheet) blank() { s.row++ }

func (s *sheet) bytes(widths ...float64) ([]byte, error) {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := s.f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := s.f.Write(&buf); err != nil {
		return nil, err
	}
	if err := s.f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ProductsWorkbook lists the product catalog.
func ProductsWorkbook(items []products.Product) ([]byte, error) {
	s := newSheet()
	if err := s.title("Danh sách vật tư"); err != nil {
		return nil, err
	}
	if err := s.header("SKU", "Tên", "Danh mục", "Đơn vị", "Xuất xứ", "Giá vốn", "Giá bán", "Tồn tối thiểu"); err != nil {
		return nil, err
	}
	for _, p := range items {
		if err := s.values(p.SKU, p.Name, p.CategoryName, p.Unit, p.Origin, p.Cost, p.Price, p.MinStock); err != nil {
			return nil, err
		}
	}
	return s.bytes(14, 36, 20, 10, 16, 14, 14, 14)
}

// DocumentWorkbook renders one receipt or issue with its lines.
func DocumentWorkbook(doc documents.Document) ([]byte, error) {
	s := newSheet()
	title, amountLabel := "Phiếu nhập kho", "Đơn giá nhập"
	if doc.Kind == documents.KindIssue {
		title, amountLabel = "Phiếu xuất kho", "Đơn giá xuất"
	}
	if err := s.title(title); err != nil {
		return nil, err
	}
	header := [][2]any{
		{"Mã phiếu", doc.Code},
		{"Kho", doc.WarehouseName},
		{"Trạng thái", string(doc.Status)},
		{"Ngày hiệu lực", formatDate(doc.EffectiveAt)},
		{"Người tạo", doc.CreatedByName},
		{"Ghi chú", doc.Note},
	}
	if doc.Kind == documents.KindReceipt {
		header = slices.Insert(header, 2, [2]any{"Nhà cung cấp", doc.SupplierName})
	}
	for _, kv := range header {
		if err := s.pair(kv[0].(string), kv[1]); err != nil {
			return nil, err
		}
	}
	s.blank()
	if err := s.header("STT", "SKU", "Vật tư", "Số lượng", amountLabel, "Thành tiền"); err != nil {
		return nil, err
	}
	for i, l := range doc.Lines {
		if err := s.values(i+1, l.SKU, l.ProductName, l.Quantity, l.UnitAmount, l.Amount()); err != nil {
			return nil, err
		}
	}
	if err := s.values("", "", "Tổng cộng", doc.TotalQuantity(), "", doc.TotalAmount()); err != nil {
		return nil, err
	}
	return s.bytes(8, 14, 36, 12, 14, 16)
}

// InventoryWorkbook is a stock snapshot per warehouse and product.
func InventoryWorkbook(rows []inventory.StockRow) ([]byte, error) {
	s := newSheet()
	if err := s.title("Báo cáo tồn kho"); err != nil {
		return nil, err
	}
	if err := s.header("Kho", "SKU", "Vật tư", "Đơn vị", "Tồn", "Cập nhật"); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := s.values(r.WarehouseName, r.SKU, r.ProductName, r.Unit, r.Quantity, r.UpdatedAt.Format("2006-01-02 15:04")); err != nil {
			return nil, err
		}
	}
	return s.bytes(20, 14, 36, 10, 12, 18)
}
