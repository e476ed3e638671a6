package embalagem

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"packdash/models"
)

const (
	FormatExcel = "excel"
	FormatCSV   = "csv"

	exportSheet = "Embalagem"
)

// exportHeader is the column header of every export file.
var exportHeader = []string{
	"ID", "Loja", "Remessa", "Local", "Ordem", "Posição Depósito", "Código",
	"Descrição Produto", "UM", "Qtde Embalagem", "Qtde Caixa", "Qtde UM",
	"Estoque", "EAN", "Status", "Usuário", "Data Registro",
}

// Exporter writes export files into Dir and serves them under URLPrefix.
type Exporter struct {
	Repo      *Repository
	Dir       string
	URLPrefix string
	Now       func() time.Time
}

func NewExporter(repo *Repository, dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{Repo: repo, Dir: dir, URLPrefix: "/exports/", Now: time.Now}, nil
}

// Export writes the filtered records in format ("excel" or "csv") and records
// the run. CSV output is UTF-8 with a BOM unless csvEncoding is
// "windows-1252". Returns ErrNoRecords when nothing matches.
func (e *Exporter) Export(ctx context.Context, exportType, format, csvEncoding string, f Filters) (ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "xlsx" {
		format = FormatExcel
	}
	if format != FormatExcel && format != FormatCSV {
		return ExportResult{}, ErrExportFormat
	}

	records, err := e.Repo.ListForExport(ctx, f)
	if err != nil {
		return ExportResult{}, err
	}
	if len(records) == 0 {
		return ExportResult{}, ErrNoRecords
	}

	stamp := e.Now().Format("20060102_150405")
	var filename string
	switch format {
	case FormatExcel:
		filename = fmt.Sprintf("embalagem_export_%s.xlsx", stamp)
		err = writeExcelFile(filepath.Join(e.Dir, filename), records)
	default:
		filename = fmt.Sprintf("embalagem_export_%s.csv", stamp)
		err = writeCSVFile(filepath.Join(e.Dir, filename), records, csvEncoding)
	}
	if err != nil {
		return ExportResult{}, err
	}

	if err := e.Repo.RecordExportRun(ctx, &models.ExportRun{
		ExportType:   exportType,
		Format:       format,
		Filename:     filename,
		TotalRecords: len(records),
	}); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		DownloadURL:  path.Join(e.URLPrefix, filename),
		Filename:     filename,
		TotalRecords: len(records),
	}, nil
}

func exportRow(r Record) []any {
	id := ""
	if r.ID != nil {
		id = strconv.FormatInt(*r.ID, 10)
	}
	return []any{
		id, r.Loja, r.Remessa, r.Local, r.Ordem, r.PosicaoDeposito, r.Codigo,
		r.DescricaoProduto, r.UM, r.QtdeEmb, r.QtdeCX, r.QtdeUM, r.Estoque,
		deref(r.EAN), string(r.Status), deref(r.Usuario), r.DataRegistro,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeExcelFile(dst string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, exportRow(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(dst); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func csvEncoder(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows-1252", "cp1252", "latin1":
		return charmap.Windows1252
	default:
		return unicode.UTF8BOM
	}
}

func writeCSVFile(dst string, records []Record, enc string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	w := encoding.ReplaceUnsupported(csvEncoder(enc).NewEncoder()).Writer(out)
	err = writeCSV(w, records)
	if err == nil {
		if c, ok := w.(io.Closer); ok {
			err = c.Close()
		}
	}
	if err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(exportHeader))
	for _, r := range records {
		for i, v := range exportRow(r) {
			switch x := v.(type) {
			case float64:
				row[i] = models.FormatQuantity(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
