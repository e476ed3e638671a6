// Package spreadsheet turns an uploaded packaging workbook into validated
// line items.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"packdash/models"
)

// Column names expected in the header row.
const (
	ColLoja             = "Loja"
	ColRemessa          = "Remessa"
	ColLocal            = "Local"
	ColOrdem            = "Ordem"
	ColPosicaoDeposito  = "Posicao_Deposito"
	ColCodigo           = "Codigo"
	ColDescricaoProduto = "Descricao_Produto"
	ColUM               = "UM"
	ColQtdeEmb          = "Qtde_Emb"
	ColQtdeCX           = "Qtde_CX"
	ColQtdeUM           = "Qtde_UM"
	ColEstoque          = "Estoque"
	ColEAN              = "EAN"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColLoja, ColRemessa, ColLocal, ColOrdem, ColPosicaoDeposito,
	ColCodigo, ColDescricaoProduto, ColUM, ColQtdeEmb, ColQtdeCX,
	ColQtdeUM, ColEstoque, ColEAN,
}

// AllowedExtensions gates uploads before any parsing happens.
var AllowedExtensions = []string{".xlsx", ".xls"}

var (
	ErrUnsupportedExtension = errors.New("unsupported file extension; use .xlsx or .xls")
	ErrUnreadableWorkbook   = errors.New("workbook could not be read")
	ErrEmptyWorkbook        = errors.New("workbook has no header row")
	ErrMissingColumns       = errors.New("required columns missing")
)

// MissingColumnsError lists the absent header columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// IsPrecondition reports whether err means the file could not be parsed at
// all, as opposed to individual rows failing.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrUnsupportedExtension) ||
		errors.Is(err, ErrUnreadableWorkbook) ||
		errors.Is(err, ErrEmptyWorkbook) ||
		errors.Is(err, ErrMissingColumns)
}

// RowError is a single row that could not become a line item.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Row is one typed spreadsheet row after coercion.
type Row struct {
	Line             int
	Loja             string
	Remessa          string
	Local            string
	Ordem            string
	PosicaoDeposito  string
	Codigo           string
	DescricaoProduto string
	UM               string
	QtdeEmb          float64
	QtdeCX           float64
	QtdeUM           float64
	Estoque          float64
	EAN              string
}

// RowResult is the per-row outcome of conversion.
type RowResult struct {
	Item models.PackagingLineItem
	Err  *RowError
}

// Result is a parsed workbook. Items may be empty.
type Result struct {
	Items     []models.PackagingLineItem
	RowErrors []RowError
	// Dropped counts rows without Remessa, Loja or Codigo.
	Dropped int
}

// ValidateFilename checks the upload's extension.
func ValidateFilename(name string) error {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedExtension, name)
}

// Parser reads packaging workbooks.
type Parser struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Parser)

func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithClock sets the clock used to stamp DataRegistro.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads the first sheet of the workbook in r.
//
// A nil Result with an error means the workbook could not be parsed at all
// (see IsPrecondition). Rows that fail conversion are logged, skipped and
// reported in Result.RowErrors.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	records, err := xl.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyWorkbook
	}

	header := normalizeHeader(records[0])
	if missing := missingColumns(header); len(missing) > 0 {
		p.logger.Error("required columns missing", slog.Any("columns", missing))
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows, dropped, err := loadRows(header, records[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	result := &Result{Items: make([]models.PackagingLineItem, 0, len(rows)), Dropped: dropped}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := p.Convert(row)
		if res.Err != nil {
			p.logger.Warn("skipping row", slog.Int("line", res.Err.Line), slog.Any("err", res.Err.Err), slog.Any("row", row))
			result.RowErrors = append(result.RowErrors, *res.Err)
			continue
		}
		result.Items = append(result.Items, res.Item)
	}

	p.logger.Info("workbook parsed",
		slog.Int("valid", len(result.Items)),
		slog.Int("row_errors", len(result.RowErrors)),
		slog.Int("dropped", result.Dropped))
	return result, nil
}

// Convert builds a line item from an upload row. Uploaded rows always start
// as Pendente with no owning user, whatever the sheet says.
func (p *Parser) Convert(row Row) RowResult {
	item, err := models.NewPackagingLineItem(models.LineItemFields{
		Loja:             row.Loja,
		Remessa:          row.Remessa,
		Local:            row.Local,
		Ordem:            row.Ordem,
		PosicaoDeposito:  row.PosicaoDeposito,
		Codigo:           row.Codigo,
		DescricaoProduto: row.DescricaoProduto,
		UM:               row.UM,
		QtdeEmb:          row.QtdeEmb,
		QtdeCX:           row.QtdeCX,
		QtdeUM:           row.QtdeUM,
		Estoque:          row.Estoque,
	},
		models.WithEAN(row.EAN),
		models.WithStatus(models.StatusPendente),
		models.WithClock(p.now),
	)
	if err != nil {
		return RowResult{Err: &RowError{Line: row.Line, Err: err}}
	}
	return RowResult{Item: item}
}

func missingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
