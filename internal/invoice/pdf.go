package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
)

// Party is a name and address block on the invoice
type Party struct {
	Name    string
	Address string
	TaxID   string
}

// Document is everything printed on a consultancy invoice
type Document struct {
	InvoiceNumber string
	InvoiceDate   time.Time
	Issuer        Party
	Buyer         Party
	Currency      string
	LineItems     []model.InvoiceLineItem
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	Notes         string
}

// LineAmount is the amount billed for a row: the supplied amount when there
// is one, quantity x rate otherwise. A supplied zero stays zero.
func LineAmount(quantity, rate decimal.Decimal, amount *decimal.Decimal) decimal.Decimal {
	if amount != nil {
		return *amount
	}
	return quantity.Mul(rate)
}

// Totals rounds line amounts and returns subtotal, tax and total rounded to
// two places.
func Totals(items []model.InvoiceLineItem, taxRate decimal.Decimal) ([]model.InvoiceLineItem, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	out := make([]model.InvoiceLineItem, len(items))
	subtotal := decimal.Zero
	for i, it := range items {
		it.Amount = it.Amount.Round(2)
		subtotal = subtotal.Add(it.Amount)
		out[i] = it
	}
	tax := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	return out, subtotal.Round(2), tax, subtotal.Add(tax).Round(2)
}

// RenderPDF lays out doc on a single A4 page
func RenderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Invoice No: "+doc.InvoiceNumber), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+doc.InvoiceDate.Format("02 Jan 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	partyBlock(pdf, tr, "From", doc.Issuer)
	partyBlock(pdf, tr, "Bill To", doc.Buyer)
	pdf.Ln(4)

	widths := []float64{90, 25, 30, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Qty", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range doc.LineItems {
		pdf.CellFormat(widths[0], 7, tr(it.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, it.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, it.Rate.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, it.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	labelW := widths[0] + widths[1] + widths[2]
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal", doc.Subtotal.StringFixed(2), false)
	if !doc.TaxRate.IsZero() {
		totalRow(fmt.Sprintf("Tax (%s%%)", doc.TaxRate.String()), doc.TaxAmount.StringFixed(2), false)
	}
	totalRow("Total ("+doc.Currency+")", doc.Total.StringFixed(2), true)

	if doc.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(doc.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func partyBlock(pdf *fpdf.Fpdf, tr func(string) string, title string, p Party) {
	if p.Name == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(p.Name), "", 1, "L", false, 0, "")
	if p.Address != "" {
		pdf.MultiCell(0, 5, tr(p.Address), "", "L", false)
	}
	if p.TaxID != "" {
		pdf.CellFormat(0, 5, tr("Tax ID: "+p.TaxID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
}
