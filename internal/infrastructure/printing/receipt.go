package printing

import (
	"context"
	"html/template"
	"time"

	salesapp "github.com/pharmapos/backend/internal/application/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrPDFUnavailable is returned for PDF receipts when no Chrome renderer is configured
var ErrPDFUnavailable = shared.NewDomainError("RECEIPT_PDF_UNAVAILABLE", "PDF receipts are not enabled")

// ReceiptConfig configures receipt output
type ReceiptConfig struct {
	PaperWidthMM float64
	Timeout      time.Duration
}

// ReceiptRenderer renders sale receipts as HTML, and as PDF when a PDFRenderer is set
type ReceiptRenderer struct {
	engine   *TemplateEngine
	template *template.Template
	pdf      PDFRenderer
	config   ReceiptConfig
	logger   *zap.Logger
}

// NewReceiptRenderer parses the receipt template. pdf may be nil.
func NewReceiptRenderer(pdf PDFRenderer, config ReceiptConfig, logger *zap.Logger) (*ReceiptRenderer, error) {
	if config.PaperWidthMM <= 0 {
		config.PaperWidthMM = defaultPaperWidthMM
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := NewTemplateEngine()
	tmpl, err := engine.Parse("receipt", receiptTemplate)
	if err != nil {
		return nil, err
	}
	return &ReceiptRenderer{engine: engine, template: tmpl, pdf: pdf, config: config, logger: logger}, nil
}

type receiptView struct {
	*salesapp.ReceiptData
	PaperWidthMM float64
}

// RenderHTML implements the sales receipt renderer
func (r *ReceiptRenderer) RenderHTML(_ context.Context, data *salesapp.ReceiptData) ([]byte, error) {
	return r.engine.Execute(r.template, receiptView{ReceiptData: data, PaperWidthMM: r.config.PaperWidthMM})
}

// RenderPDF implements the sales receipt renderer
func (r *ReceiptRenderer) RenderPDF(ctx context.Context, data *salesapp.ReceiptData) ([]byte, error) {
	if r.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := r.RenderHTML(ctx, data)
	if err != nil {
		return nil, err
	}
	pdf, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:         string(html),
		PaperWidthMM: r.config.PaperWidthMM,
		MarginMM:     2,
		Timeout:      r.config.Timeout,
	})
	if err != nil {
		r.logger.Warn("Failed to render receipt PDF",
			zap.String("receipt_number", data.Sale.ReceiptNumber),
			zap.Error(err),
		)
		return nil, err
	}
	return pdf, nil
}

// Close releases the PDF renderer
func (r *ReceiptRenderer) Close() error {
	if r.pdf == nil {
		return nil
	}
	return r.pdf.Close()
}

var _ salesapp.ReceiptRenderer = (*ReceiptRenderer)(nil)

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Sale.ReceiptNumber}}</title>
<style>
  body { width: {{.PaperWidthMM}}mm; margin: 0 auto; font-family: "DejaVu Sans Mono", monospace; font-size: 11px; color: #000; }
  h1 { font-size: 14px; margin: 0; text-align: center; }
  .center { text-align: center; }
  .muted { color: #444; }
  .banner { border: 1px dashed #000; text-align: center; font-weight: bold; margin: 6px 0; padding: 2px; }
  table { width: 100%; border-collapse: collapse; }
  td { vertical-align: top; padding: 1px 0; }
  td.num { text-align: right; white-space: nowrap; }
  tr.total td { font-weight: bold; border-top: 1px solid #000; padding-top: 3px; }
  hr { border: 0; border-top: 1px dashed #000; margin: 6px 0; }
</style>
</head>
<body>
  <h1>{{.Store.Name}}</h1>
  {{with .Store.Address}}<div class="center muted">{{.}}</div>{{end}}
  {{with .Store.Phone}}<div class="center muted">Tel: {{.}}</div>{{end}}
  <hr>
  <table>
    <tr><td>Receipt</td><td class="num">{{.Sale.ReceiptNumber}}</td></tr>
    <tr><td>Date</td><td class="num">{{datetime .Sale.CreatedAt .Location}}</td></tr>
    <tr><td>Cashier</td><td class="num">{{.Sale.CashierName}}</td></tr>
    {{with .Sale.CustomerName}}<tr><td>Customer</td><td class="num">{{.}}</td></tr>{{end}}
    {{with .Sale.PrescriptionRef}}<tr><td>Prescription</td><td class="num">{{.}}</td></tr>{{end}}
  </table>
  {{if eq .Sale.Status "voided"}}<div class="banner">VOIDED{{with .Sale.VoidedAt}} {{datetime . $.Location}}{{end}}</div>{{end}}
  {{if eq .Sale.Status "refunded"}}<div class="banner">REFUNDED{{with .Sale.RefundedAt}} {{datetime . $.Location}}{{end}}</div>{{end}}
  <hr>
  <table>
    {{range .Sale.Items}}
    <tr><td colspan="2">{{truncate 32 .ProductName}}</td></tr>
    <tr>
      <td class="muted">{{.Quantity}} x {{money .UnitPrice}}{{if positive .Discount}} (-{{money .Discount}}){{end}}</td>
      <td class="num">{{money .LineTotal}}</td>
    </tr>
    {{end}}
  </table>
  <hr>
  <table>
    <tr><td>Subtotal</td><td class="num">{{money .Sale.Subtotal}}</td></tr>
    {{if positive .Sale.DiscountAmount}}<tr><td>Discount</td><td class="num">-{{money .Sale.DiscountAmount}}</td></tr>{{end}}
    {{if positive .Sale.TaxAmount}}<tr><td>Tax ({{percent .Sale.TaxRate}})</td><td class="num">{{money .Sale.TaxAmount}}</td></tr>{{end}}
    <tr class="total"><td>TOTAL</td><td class="num">{{money .Sale.TotalAmount .Currency}}</td></tr>
    <tr><td>{{label .Sale.PaymentMethod}}</td><td class="num">{{money .Sale.AmountPaid}}</td></tr>
    {{if positive .Sale.ChangeDue}}<tr><td>Change</td><td class="num">{{money .Sale.ChangeDue}}</td></tr>{{end}}
  </table>
  <hr>
  <div class="center">{{.Sale.ItemCount}} item(s)</div>
  <div class="center">Thank you. Get well soon!</div>
</body>
</html>
`
