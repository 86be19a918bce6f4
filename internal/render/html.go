package render

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"github.com/straye-as/offers-api/internal/domain"
)

// HTMLRenderer renders the printable offer page. The PDF renderer prints
// the same markup.
type HTMLRenderer struct {
	document *template.Template
	portal   *template.Template
	email    *template.Template
}

// NewHTMLRenderer parses the embedded templates
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		document: parseTemplate("offer.html.tmpl"),
		portal:   parseTemplate("portal.html.tmpl"),
		email:    parseTemplate("email.html.tmpl"),
	}
}

// ContentType implements Renderer
func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render implements Renderer
func (r *HTMLRenderer) Render(_ context.Context, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.document.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PortalPage is the data of the client-facing offer page
type PortalPage struct {
	Offer     domain.PortalOfferDTO
	AcceptURL string
	// Notice is shown above the offer, e.g. after an accept
	Notice string
}

// RenderPortal renders the client-facing offer page
func (r *HTMLRenderer) RenderPortal(page PortalPage) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.portal.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Email is the data of an offer email
type Email struct {
	CompanyName string
	ClientName  string
	OfferNo     string
	Message     string
	Total       float64
	PortalURL   string
	ClickURL    string
	OpenURL     string
}

// RenderEmail returns the plain text and HTML bodies of an offer email.
// The HTML body links through the click tracker and embeds the open beacon.
func (r *HTMLRenderer) RenderEmail(e Email) (string, string, error) {
	var text strings.Builder
	if e.ClientName != "" {
		text.WriteString("Hello " + e.ClientName + ",\n\n")
	} else {
		text.WriteString("Hello,\n\n")
	}
	if e.Message != "" {
		text.WriteString(e.Message + "\n\n")
	}
	text.WriteString("Please find offer " + e.OfferNo + " attached. Total: " + FormatMoney(e.Total) + ".\n")
	if e.PortalURL != "" {
		text.WriteString("You can review and accept it online: " + e.PortalURL + "\n")
	}
	text.WriteString("\nBest regards,\n" + e.CompanyName + "\n")

	var buf bytes.Buffer
	if err := r.email.Execute(&buf, e); err != nil {
		return "", "", err
	}
	return text.String(), buf.String(), nil
}
