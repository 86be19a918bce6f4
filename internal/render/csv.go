package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
)

// CSVRenderer exports the item lines with totals for spreadsheets
type CSVRenderer struct{}

// NewCSVRenderer creates a CSVRenderer
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// ContentType implements Renderer
func (r *CSVRenderer) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Render implements Renderer
func (r *CSVRenderer) Render(_ context.Context, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{{"offer_no", "client", "position", "name", "qty", "price", "line_total"}}
	for _, item := range doc.Items {
		records = append(records, []string{
			doc.Offer.OfferNo,
			doc.Offer.ClientName,
			strconv.Itoa(item.Position),
			item.Name,
			FormatQty(item.Qty),
			FormatMoney(item.Price),
			FormatMoney(item.LineTotal),
		})
	}
	records = append(records,
		[]string{"", "", "", "", "", "subtotal", FormatMoney(doc.Totals.Subtotal)},
		[]string{"", "", "", "", "", "vat " + FormatQty(doc.Offer.VATRate) + "%", FormatMoney(doc.Totals.VAT)},
		[]string{"", "", "", "", "", "total", FormatMoney(doc.Totals.Total)},
	)

	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
