// Package render turns offers into documents: an HTML page, a CSV export
// for spreadsheets and a PDF printed from the HTML by headless Chrome.
package render

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/offers-api/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Format is a document output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for unknown or disabled formats
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ParseFormat maps a query value onto a Format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatHTML, FormatCSV:
		return f, nil
	case "":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Document is everything a renderer needs for one offer
type Document struct {
	Offer     *domain.Offer
	Items     []domain.OfferItem
	Totals    domain.Totals
	Company   domain.CompanySettings
	PortalURL string
}

// NewDocument assembles a document and computes its totals
func NewDocument(offer *domain.Offer, items []domain.OfferItem, company domain.CompanySettings, portalURL string) *Document {
	return &Document{
		Offer:     offer,
		Items:     items,
		Totals:    domain.ComputeTotals(items, offer.VATRate),
		Company:   company,
		PortalURL: portalURL,
	}
}

// Title is "Invoice" once an invoice number exists and "Offer" before
func (d *Document) Title() string {
	if d.Offer.HasInvoice() {
		return "Invoice"
	}
	return "Offer"
}

// Number is the invoice number for invoices and the offer number otherwise
func (d *Document) Number() string {
	if d.Offer.HasInvoice() {
		return *d.Offer.InvoiceNo
	}
	return d.Offer.OfferNo
}

// Filename is the download name of the document in format f
func (d *Document) Filename(f Format) string {
	return d.Number() + "." + string(f)
}

// Renderer renders a document in one format
type Renderer interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
	ContentType() string
}

// Set holds the renderers available at runtime. PDF is absent when
// rendering through Chrome is disabled.
type Set struct {
	renderers map[Format]Renderer
}

// NewSet creates a Set. pdf may be nil.
func NewSet(html *HTMLRenderer, csv *CSVRenderer, pdf Renderer) *Set {
	s := &Set{renderers: map[Format]Renderer{
		FormatHTML: html,
		FormatCSV:  csv,
	}}
	if pdf != nil {
		s.renderers[FormatPDF] = pdf
	}
	return s
}

// Get returns the renderer for f
func (s *Set) Get(f Format) (Renderer, error) {
	r, ok := s.renderers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return r, nil
}

// Attachment returns the preferred format for emailed documents: PDF when
// available, HTML otherwise
func (s *Set) Attachment() Format {
	if _, ok := s.renderers[FormatPDF]; ok {
		return FormatPDF
	}
	return FormatHTML
}

var funcs = template.FuncMap{
	"money": FormatMoney,
	"qty":   FormatQty,
	"date":  formatDate,
}

// FormatMoney renders an amount with two decimals
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatQty renders a quantity without trailing zeros
func FormatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func parseTemplate(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/"+name))
}
