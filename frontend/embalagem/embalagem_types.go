package embalagem

import (
	"errors"
	"net/url"
	"strings"

	"packdash/models"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 500
)

var (
	ErrNoRecords       = errors.New("no records match the filters")
	ErrRemessaRequired = errors.New("remessa is required for this export type")
	ErrDateRequired    = errors.New("at least one date is required")
	ErrExportType      = errors.New("export_type must be all, remessa or date")
	ErrExportFormat    = errors.New("format must be excel or csv")
)

// Filters narrows listing and export queries. Empty fields are ignored.
type Filters struct {
	DataInicio string `json:"data_inicio,omitempty"`
	DataFim    string `json:"data_fim,omitempty"`
	Status     string `json:"status,omitempty"`
	Remessa    string `json:"remessa,omitempty"`
	Loja       string `json:"loja,omitempty"`
	Codigo     string `json:"codigo,omitempty"`
}

// FiltersFromQuery reads the filter query parameters.
func FiltersFromQuery(q url.Values) Filters {
	get := func(k string) string { return strings.TrimSpace(q.Get(k)) }
	return Filters{
		DataInicio: get("data_inicio"),
		DataFim:    get("data_fim"),
		Status:     get("status"),
		Remessa:    get("remessa"),
		Loja:       get("loja"),
		Codigo:     get("codigo"),
	}
}

// Record is a persisted line item as the listing returns it.
type Record struct {
	models.PackagingLineItem `bun:",extend"`

	DataRegistroFormatted string `bun:"data_registro_formatted"`
}

// View is the API representation, including the formatted timestamp.
func (r Record) View() map[string]any {
	m := r.ToMap()
	m["Data_Registro_Formatted"] = r.DataRegistroFormatted
	return m
}

// Page is one page of the filtered listing.
type Page struct {
	Records      []Record `json:"-"`
	CurrentPage  int      `json:"current_page"`
	TotalPages   int      `json:"total_pages"`
	TotalRecords int      `json:"total_records"`
	PerPage      int      `json:"per_page"`
	HasNext      bool     `json:"has_next"`
	HasPrev      bool     `json:"has_prev"`
}

// ExportRequest is the body of a custom export.
type ExportRequest struct {
	ExportType string `json:"export_type"`
	Remessa    string `json:"remessa"`
	DataInicio string `json:"data_inicio"`
	DataFim    string `json:"data_fim"`
}

// Filters validates the request and turns it into listing filters.
func (e ExportRequest) Filters() (Filters, error) {
	switch strings.TrimSpace(e.ExportType) {
	case "", "all":
		return Filters{}, nil
	case "remessa":
		remessa := strings.TrimSpace(e.Remessa)
		if remessa == "" {
			return Filters{}, ErrRemessaRequired
		}
		return Filters{Remessa: remessa}, nil
	case "date":
		f := Filters{DataInicio: strings.TrimSpace(e.DataInicio), DataFim: strings.TrimSpace(e.DataFim)}
		if f.DataInicio == "" && f.DataFim == "" {
			return Filters{}, ErrDateRequired
		}
		return f, nil
	default:
		return Filters{}, ErrExportType
	}
}

// ExportResult describes a written export file.
type ExportResult struct {
	DownloadURL  string `json:"download_url"`
	Filename     string `json:"filename"`
	TotalRecords int    `json:"total_records"`
}

// StatusChange is the body of a status transition.
type StatusChange struct {
	Status  string `json:"status"`
	Usuario string `json:"usuario"`
}

// UploadSummary is one recorded upload run.
type UploadSummary struct {
	ID             string `bun:"id" json:"id"`
	Filename       string `bun:"filename" json:"filename"`
	TotalReceived  int    `bun:"total_received" json:"total_received"`
	InsertedCount  int    `bun:"inserted_count" json:"inserted_count"`
	DuplicateCount int    `bun:"duplicate_count" json:"duplicate_count"`
	CreatedAt      string `bun:"created_at_display" json:"created_at"`
}
