package embalagem

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
	"github.com/jung-kurt/gofpdf"

	"packdash/models"
)

var ErrNoEAN = errors.New("record has no EAN")

// encodeBarcode uses EAN-8/13 when the value is a valid EAN and falls back
// to Code 128 otherwise.
func encodeBarcode(value string) (barcode.Barcode, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrNoEAN
	}
	if code, err := ean.Encode(value); err == nil {
		return code, nil
	}
	return code128.Encode(value)
}

func renderBarcodePNG(value string, width, height int) ([]byte, error) {
	code, err := encodeBarcode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := png.Encode(&out, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}

// RenderRecordBarcodePNG draws the record's EAN.
func RenderRecordBarcodePNG(rec Record) ([]byte, error) {
	if rec.EAN == nil {
		return nil, ErrNoEAN
	}
	return renderBarcodePNG(*rec.EAN, 600, 200)
}

// renderRemessaLabelsPDF prints one packing label per line of a shipment.
func renderRemessaLabelsPDF(remessa string, records []Record, printedAt time.Time) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	pdf := gofpdf.New("L", "mm", "A5", "")
	pdf.SetTitle("Remessa "+remessa, false)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, rec := range records {
		pdf.AddPage()
		pageW, pageH := pdf.GetPageSize()
		margin := 6.0
		pdf.SetLineWidth(0.3)
		pdf.Rect(margin, margin, pageW-2*margin, pageH-2*margin, "")

		pdf.SetXY(margin+3, margin+3)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.CellFormat(pageW-2*margin-6, 9, tr("Remessa "+remessa), "", 1, "L", false, 0, "")

		pdf.SetX(margin + 3)
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(pageW-2*margin-6, 6, tr(fmt.Sprintf("Loja %s  |  Ordem %s  |  %s", rec.Loja, rec.Ordem, rec.PosicaoDeposito)), "", 1, "L", false, 0, "")

		pdf.SetX(margin + 3)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(pageW-2*margin-6, 7, tr(rec.Codigo+"  "+rec.DescricaoProduto), "", 1, "L", false, 0, "")

		pdf.SetX(margin + 3)
		pdf.SetFont("Helvetica", "", 11)
		qty := fmt.Sprintf("Emb: %s %s   CX: %s   UM: %s   Status: %s",
			models.FormatQuantity(rec.QtdeEmb), rec.UM,
			models.FormatQuantity(rec.QtdeCX), models.FormatQuantity(rec.QtdeUM), rec.Status)
		pdf.CellFormat(pageW-2*margin-6, 6, tr(qty), "", 1, "L", false, 0, "")

		if rec.EAN != nil {
			img, err := renderBarcodePNG(*rec.EAN, 800, 220)
			if err != nil {
				return nil, fmt.Errorf("barcode for line %d: %w", i+1, err)
			}
			opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
			name := fmt.Sprintf("ean-%d", i)
			pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(img))
			imgW, imgH := 80.0, 22.0
			y := pageH - margin - imgH - 12
			pdf.ImageOptions(name, (pageW-imgW)/2, y, imgW, imgH, false, opt, 0, "")
			pdf.SetXY(margin, y+imgH+1)
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(pageW-2*margin, 4, *rec.EAN, "", 0, "C", false, 0, "")
		}

		pdf.SetXY(margin+3, pageH-margin-6)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(pageW-2*margin-6, 4, fmt.Sprintf("%d/%d  impresso em %s", i+1, len(records), printedAt.Format("02/01/2006 15:04")), "", 0, "R", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
