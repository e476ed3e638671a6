package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Status is the lifecycle state of a packaging line item.
type Status string

const (
	StatusPendente    Status = "Pendente"
	StatusEmSeparacao Status = "em_separacao"
	StatusFinalizado  Status = "Finalizado"
	StatusFaturado    Status = "Faturado"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusPendente, StatusEmSeparacao, StatusFinalizado, StatusFaturado}

// DataRegistroLayout is the registration timestamp format.
const DataRegistroLayout = "2006-01-02 15:04:05"

var (
	ErrBlankKeyField = errors.New("remessa, loja and codigo are required")
	ErrInvalidStatus = errors.New("invalid status")
)

// ParseStatus validates v against the known statuses.
func ParseStatus(v string) (Status, error) {
	for _, s := range Statuses {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}

// TupleColumns is the persistence column order of ToTuple.
// The insert statement depends on it; do not reorder.
var TupleColumns = []string{
	"loja", "remessa", "local", "ordem", "posicao_deposito", "codigo",
	"descricao_produto", "um", "qtde_emb", "qtde_cx", "qtde_um",
	"estoque", "ean", "status", "usuario",
}

// PackagingLineItem is one uploaded shipment/packaging line.
type PackagingLineItem struct {
	bun.BaseModel `bun:"table:temp_embalagem,alias:te"`

	ID               *int64  `bun:"id,pk,autoincrement"`
	Loja             string  `bun:"loja,notnull"`
	Remessa          string  `bun:"remessa,notnull"`
	Local            string  `bun:"local,notnull"`
	Ordem            string  `bun:"ordem,notnull"`
	PosicaoDeposito  string  `bun:"posicao_deposito,notnull"`
	Codigo           string  `bun:"codigo,notnull"`
	DescricaoProduto string  `bun:"descricao_produto,notnull"`
	UM               string  `bun:"um,notnull"`
	QtdeEmb          float64 `bun:"qtde_emb,notnull"`
	QtdeCX           float64 `bun:"qtde_cx,notnull"`
	QtdeUM           float64 `bun:"qtde_um,notnull"`
	Estoque          float64 `bun:"estoque,notnull"`
	EAN              *string `bun:"ean"`
	Status           Status  `bun:"status,notnull"`
	Usuario          *string `bun:"usuario"`
	DataRegistro     string  `bun:"data_registro"`
}

// LineItemFields holds the mandatory constructor inputs.
type LineItemFields struct {
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
}

type lineItemOptions struct {
	ean          *string
	status       Status
	usuario      *string
	dataRegistro string
	now          func() time.Time
}

// LineItemOption customizes NewPackagingLineItem.
type LineItemOption func(*lineItemOptions)

// WithEAN sets the barcode; it goes through NormalizeEAN.
func WithEAN(raw string) LineItemOption {
	return func(o *lineItemOptions) { o.ean = NormalizeEAN(raw) }
}

func WithStatus(s Status) LineItemOption {
	return func(o *lineItemOptions) { o.status = s }
}

func WithUsuario(u string) LineItemOption {
	return func(o *lineItemOptions) {
		u = strings.TrimSpace(u)
		if u == "" {
			o.usuario = nil
			return
		}
		o.usuario = &u
	}
}

func WithDataRegistro(ts string) LineItemOption {
	return func(o *lineItemOptions) { o.dataRegistro = ts }
}

// WithClock replaces time.Now when stamping DataRegistro.
func WithClock(now func() time.Time) LineItemOption {
	return func(o *lineItemOptions) { o.now = now }
}

// NewPackagingLineItem builds a validated line item. DataRegistro is stamped
// with the local time when not supplied.
func NewPackagingLineItem(f LineItemFields, opts ...LineItemOption) (PackagingLineItem, error) {
	o := lineItemOptions{status: StatusPendente, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(f.Remessa) == "" || strings.TrimSpace(f.Loja) == "" || strings.TrimSpace(f.Codigo) == "" {
		return PackagingLineItem{}, ErrBlankKeyField
	}
	if _, err := ParseStatus(string(o.status)); err != nil {
		return PackagingLineItem{}, err
	}
	if o.dataRegistro == "" {
		o.dataRegistro = o.now().Format(DataRegistroLayout)
	}

	return PackagingLineItem{
		Loja:             f.Loja,
		Remessa:          f.Remessa,
		Local:            f.Local,
		Ordem:            f.Ordem,
		PosicaoDeposito:  f.PosicaoDeposito,
		Codigo:           f.Codigo,
		DescricaoProduto: f.DescricaoProduto,
		UM:               f.UM,
		QtdeEmb:          f.QtdeEmb,
		QtdeCX:           f.QtdeCX,
		QtdeUM:           f.QtdeUM,
		Estoque:          f.Estoque,
		EAN:              o.ean,
		Status:           o.status,
		Usuario:          o.usuario,
		DataRegistro:     o.dataRegistro,
	}, nil
}

// MissingValues are the cell texts read as empty, matching the NA tokens
// pandas recognizes by default. Matching is case-sensitive.
var MissingValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var missingSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(MissingValues))
	for _, v := range MissingValues {
		m[v] = struct{}{}
	}
	return m
}()

// IsMissing reports whether a trimmed cell text is one of MissingValues.
func IsMissing(raw string) bool {
	_, ok := missingSet[strings.TrimSpace(raw)]
	return ok
}

// NormalizeEAN maps missing cell texts and any casing of "nan"/"none" to nil.
func NormalizeEAN(raw string) *string {
	v := strings.TrimSpace(raw)
	if IsMissing(v) {
		return nil
	}
	switch strings.ToLower(v) {
	case "nan", "none":
		return nil
	}
	return &v
}

// FormatQuantity renders a quantity the way composite keys expect it:
// shortest representation, no trailing ".0".
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// CompositeKey is the deduplication identity: remessa+loja+codigo+qtde_emb.
func (i PackagingLineItem) CompositeKey() string {
	return i.Remessa + "+" + i.Loja + "+" + i.Codigo + "+" + FormatQuantity(i.QtdeEmb)
}

// ToMap returns the API representation.
func (i PackagingLineItem) ToMap() map[string]any {
	m := map[string]any{
		"Loja":              i.Loja,
		"Remessa":           i.Remessa,
		"Local":             i.Local,
		"Ordem":             i.Ordem,
		"Posicao_Deposito":  i.PosicaoDeposito,
		"Codigo":            i.Codigo,
		"Descricao_Produto": i.DescricaoProduto,
		"UM":                i.UM,
		"Qtde_Emb":          i.QtdeEmb,
		"Qtde_CX":           i.QtdeCX,
		"Qtde_UM":           i.QtdeUM,
		"Estoque":           i.Estoque,
		"EAN":               derefOrNil(i.EAN),
		"Status":            string(i.Status),
		"Usuario":           derefOrNil(i.Usuario),
		"Data_Registro":     i.DataRegistro,
	}
	if i.ID != nil {
		m["id"] = *i.ID
	}
	return m
}

// ToTuple returns the values in TupleColumns order.
func (i PackagingLineItem) ToTuple() []any {
	return []any{
		i.Loja, i.Remessa, i.Local, i.Ordem,
		i.PosicaoDeposito, i.Codigo, i.DescricaoProduto,
		i.UM, i.QtdeEmb, i.QtdeCX, i.QtdeUM,
		i.Estoque, derefOrNil(i.EAN), string(i.Status), derefOrNil(i.Usuario),
	}
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// DashboardStats aggregates persisted line items.
type DashboardStats struct {
	TotalRemessas   int     `json:"total_remessas"`
	Pendentes       int     `json:"pendentes"`
	EmSeparacao     int     `json:"em_separacao"`
	Finalizados     int     `json:"finalizados"`
	Faturados       int     `json:"faturados"`
	PercentualCorte float64 `json:"percentual_corte"`
	TotalItens      int     `json:"total_itens"`
	ItensComCorte   int     `json:"itens_com_corte"`
}

// CutPercentage is cut/total as a percentage rounded to two decimals.
func CutPercentage(cut, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(cut)/float64(total)*100*100) / 100
}
