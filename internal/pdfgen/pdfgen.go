// Package pdfgen renders a signed application into the archival PDF that is
// uploaded to object storage.
package pdfgen

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"funding-apply/internal/common/logger"
	"funding-apply/internal/draft"
	"funding-apply/internal/format"
	"funding-apply/internal/signature"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders the application document. Rendering runs under a wall
// clock deadline; a blown deadline is a hard failure because the upload
// stage cannot proceed without the document.
type Generator struct {
	timeout time.Duration
	logger  logger.Logger
}

func NewGenerator(timeout time.Duration, log logger.Logger) *Generator {
	return &Generator{
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "pdfgen"}),
	}
}

// Render produces the PDF bytes for the application and its certificate.
func (g *Generator) Render(ctx context.Context, app *draft.Application, cert signature.Certificate) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pdf render: %w", err)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := render(app, cert)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		g.logger.Error("pdf render deadline exceeded", map[string]interface{}{
			"timeout": g.timeout.String(),
		})
		return nil, fmt.Errorf("pdf render: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("pdf render: %w", r.err)
		}
		return r.data, nil
	}
}

func render(app *draft.Application, cert signature.Certificate) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Business Funding Application", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Business Funding Application")
	pdf.Ln(14)

	section(pdf, "Funding Request")
	row(pdf, "Amount Requested", "$"+app.FundingAmount)
	row(pdf, "Use of Funds", app.UseOfFunds)

	section(pdf, "Business Information")
	row(pdf, "Legal Name", app.LegalName)
	if strings.TrimSpace(app.DBA) != "" {
		row(pdf, "DBA", app.DBA)
	}
	row(pdf, "EIN", format.FormatEIN(app.EIN))
	row(pdf, "Entity Type", app.EntityType)
	row(pdf, "Start Date", app.StartDate)
	row(pdf, "Industry", app.Industry)
	row(pdf, "Annual Revenue", "$"+app.AnnualRevenue)
	row(pdf, "Address", fmt.Sprintf("%s, %s, %s %s", app.Address, app.City, app.State, format.FormatZip(app.Zip)))

	section(pdf, "Primary Owner")
	ownerRows(pdf, app.Owner)
	if app.HasSecondOwner {
		section(pdf, "Second Owner")
		ownerRows(pdf, app.SecondOwner)
	}

	section(pdf, "Signature")
	if name := strings.TrimSpace(app.Signature.TypedName); name != "" {
		row(pdf, "Signed By", name)
	}
	row(pdf, "Signed On", app.Signature.SignedDate)
	if err := drawSignatureImage(pdf, app.Signature.ImageData); err != nil {
		return nil, err
	}

	section(pdf, "Signing Certificate")
	row(pdf, "Certificate ID", cert.SigningID)
	row(pdf, "IP Address", cert.IP)
	row(pdf, "User Agent", cert.UserAgent)
	row(pdf, "Timestamp", cert.Timestamp.Format(time.RFC3339))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

func row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, value, "", "L", false)
}

func ownerRows(pdf *gofpdf.Fpdf, o draft.Owner) {
	row(pdf, "Name", strings.TrimSpace(o.FirstName+" "+o.LastName))
	row(pdf, "Email", o.Email)
	row(pdf, "Phone", format.FormatPhone(o.Phone))
	row(pdf, "Date of Birth", o.DateOfBirth)
	row(pdf, "SSN", format.FormatSSN(o.SSN))
	row(pdf, "Address", fmt.Sprintf("%s, %s, %s %s", o.Address, o.City, o.State, format.FormatZip(o.Zip)))
	row(pdf, "Ownership", o.OwnershipPercent+"%")
}

// drawSignatureImage embeds the drawn signature when present. Only PNG data
// URLs are produced by the capture pad.
func drawSignatureImage(pdf *gofpdf.Fpdf, dataURL string) error {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		return fmt.Errorf("signature image: %w", err)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(raw))
	if pdf.Err() {
		return fmt.Errorf("signature image: %w", pdf.Error())
	}
	pdf.ImageOptions("signature", pdf.GetX()+55, pdf.GetY(), 60, 0, true, opts, 0, "")
	return nil
}
