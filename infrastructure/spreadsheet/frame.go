package spreadsheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"packdash/models"
)

// lineCol carries the 1-based sheet row number through the frame.
const lineCol = "__line"

// loadRows builds a string-typed frame from the data rows, drops rows
// missing a key column and returns the remaining rows typed.
func loadRows(header []string, data [][]string) ([]Row, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	records := make([][]string, 0, len(data)+1)
	records = append(records, append([]string{lineCol}, header...))
	for i, raw := range data {
		rec := make([]string, len(header)+1)
		rec[0] = strconv.Itoa(i + 2)
		for j := 0; j < len(header) && j < len(raw); j++ {
			rec[j+1] = strings.TrimSpace(raw[j])
		}
		records = append(records, rec)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(models.MissingValues),
	)
	if err := df.Error(); err != nil {
		return nil, 0, fmt.Errorf("load frame: %w", err)
	}

	keep := keyedRows(df)
	dropped := df.Nrow() - len(keep)
	if len(keep) == 0 {
		return nil, dropped, nil
	}
	df = df.Subset(keep)
	if err := df.Error(); err != nil {
		return nil, 0, fmt.Errorf("subset frame: %w", err)
	}

	cols := make(map[string]series.Series, len(RequiredColumns)+1)
	for _, name := range append([]string{lineCol}, RequiredColumns...) {
		cols[name] = df.Col(name)
	}

	rows := make([]Row, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		str := func(col string) string { return cellString(cols[col].Elem(i)) }
		line, _ := strconv.Atoi(str(lineCol))
		rows = append(rows, Row{
			Line:             line,
			Loja:             str(ColLoja),
			Remessa:          str(ColRemessa),
			Local:            str(ColLocal),
			Ordem:            str(ColOrdem),
			PosicaoDeposito:  str(ColPosicaoDeposito),
			Codigo:           str(ColCodigo),
			DescricaoProduto: str(ColDescricaoProduto),
			UM:               str(ColUM),
			QtdeEmb:          parseQuantity(str(ColQtdeEmb)),
			QtdeCX:           parseQuantity(str(ColQtdeCX)),
			QtdeUM:           parseQuantity(str(ColQtdeUM)),
			Estoque:          parseQuantity(str(ColEstoque)),
			EAN:              str(ColEAN),
		})
	}
	return rows, dropped, nil
}

// keyedRows returns the indexes of rows with Remessa, Loja and Codigo set.
func keyedRows(df dataframe.DataFrame) []int {
	remessa, loja, codigo := df.Col(ColRemessa), df.Col(ColLoja), df.Col(ColCodigo)
	keep := make([]int, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if present(remessa.Elem(i)) && present(loja.Elem(i)) && present(codigo.Elem(i)) {
			keep = append(keep, i)
		}
	}
	return keep
}

func present(e series.Element) bool {
	return !e.IsNA() && !models.IsMissing(e.String())
}

func cellString(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	return e.String()
}

// parseQuantity coerces a cell to float64; anything unparseable is 0.
func parseQuantity(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// normalizeHeader trims names, labels blank ones and suffixes repeats
// (".1", ".2") so every column name in the frame is unique.
func normalizeHeader(values []string) []string {
	out := make([]string, len(values))
	seen := make(map[string]int, len(values))
	for i, v := range values {
		name := strings.TrimSpace(v)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
