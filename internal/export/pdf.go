package export

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/khovattu/khovattu/internal/documents"
	"github.com/khovattu/khovattu/internal/masterdata/products"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("export").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html"))

// Renderer converts HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

func productsHTML(items []products.Product, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "products.html", map[string]any{
		"Products":    items,
		"GeneratedAt": now.Format("02/01/2006 15:04"),
	})
	return buf.String(), err
}

func documentHTML(doc documents.Document) (string, error) {
	title, amountLabel := "Phiếu nhập kho", "Đơn giá nhập"
	if doc.Kind == documents.KindIssue {
		title, amountLabel = "Phiếu xuất kho", "Đơn giá xuất"
	}
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "document.html", map[string]any{
		"Title":       title,
		"AmountLabel": amountLabel,
		"Doc":         doc,
		"EffectiveAt": formatDate(doc.EffectiveAt),
	})
	return buf.String(), err
}
