package embalagem

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"packdash/frontend/shared/respond"
	"packdash/infrastructure/cache"
	"packdash/infrastructure/ingest"
	"packdash/infrastructure/spreadsheet"
	"packdash/models"
)

// ExportObserver counts generated exports.
type ExportObserver interface {
	ObserveExport(format string)
}

func EmbalagemPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := EmbalagemPage().Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render embalagem page", http.StatusInternalServerError)
			return
		}
	}
}

func StatsQueryHandler(repo *Repository, statsCache *cache.StatsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stats, ok := statsCache.Get(); ok {
			respond.OK(w, "", stats)
			return
		}
		stats, err := repo.LoadDashboardStats(r.Context())
		if err != nil {
			slog.Error("load dashboard stats failed", slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro ao obter estatísticas")
			return
		}
		statsCache.Set(stats)
		respond.OK(w, "", stats)
	}
}

func UploadCommandHandler(svc *ingest.Service, statsCache *cache.StatsCache, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			respond.Error(w, http.StatusBadRequest, "Upload inválido")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Nenhum arquivo enviado")
			return
		}
		defer file.Close()
		if strings.TrimSpace(header.Filename) == "" {
			respond.Error(w, http.StatusBadRequest, "Nenhum arquivo selecionado")
			return
		}
		if err := spreadsheet.ValidateFilename(header.Filename); err != nil {
			respond.Error(w, http.StatusBadRequest, "Formato de arquivo inválido. Use apenas .xlsx ou .xls")
			return
		}

		raw, err := io.ReadAll(file)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Falha ao ler o arquivo enviado")
			return
		}

		out := svc.ProcessUpload(r.Context(), raw, header.Filename)
		switch {
		case out.Precondition:
			respond.JSON(w, http.StatusBadRequest, respond.Envelope{
				Error: "Erro ao processar arquivo. Verifique o formato e colunas obrigatórias.",
				Data:  out,
			})
		case out.TotalReceived == 0:
			respond.JSON(w, http.StatusBadRequest, respond.Envelope{
				Error: "Nenhum registro válido encontrado no arquivo",
				Data:  out,
			})
		case !out.Success:
			respond.JSON(w, http.StatusInternalServerError, respond.Envelope{Error: out.Error, Data: out})
		default:
			if out.ValidRecords > 0 {
				statsCache.Invalidate()
			}
			respond.OK(w, fmt.Sprintf("Upload realizado com sucesso! %d registros inseridos.", out.ValidRecords), out)
		}
	}
}

func DataQueryHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := intParam(q.Get("page"), 1)
		perPage := intParam(q.Get("per_page"), DefaultPerPage)

		result, err := repo.ListPage(r.Context(), page, perPage, FiltersFromQuery(q))
		if err != nil {
			slog.Error("list line items failed", slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro ao obter dados")
			return
		}
		views := make([]map[string]any, 0, len(result.Records))
		for _, rec := range result.Records {
			views = append(views, rec.View())
		}
		respond.OK(w, "", map[string]any{
			"data":          views,
			"current_page":  result.CurrentPage,
			"total_pages":   result.TotalPages,
			"total_records": result.TotalRecords,
			"per_page":      result.PerPage,
			"has_next":      result.HasNext,
			"has_prev":      result.HasPrev,
		})
	}
}

func RecordQueryHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadRecord(w, r, repo)
		if !ok {
			return
		}
		respond.OK(w, "", rec.View())
	}
}

func UpdateStatusCommandHandler(repo *Repository, statsCache *cache.StatsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			respond.Error(w, http.StatusBadRequest, "ID inválido")
			return
		}
		var req StatusChange
		if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "Payload inválido")
			return
		}
		status, err := models.ParseStatus(strings.TrimSpace(req.Status))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Status inválido")
			return
		}

		rec, err := repo.UpdateStatus(r.Context(), id, status, req.Usuario)
		if errors.Is(err, sql.ErrNoRows) {
			respond.Error(w, http.StatusNotFound, "Registro não encontrado")
			return
		}
		if err != nil {
			slog.Error("update status failed", slog.Int64("id", id), slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro ao atualizar status")
			return
		}
		statsCache.Invalidate()
		respond.OK(w, "Status atualizado", rec.View())
	}
}

func BarcodeQueryHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadRecord(w, r, repo)
		if !ok {
			return
		}
		img, err := RenderRecordBarcodePNG(rec)
		if errors.Is(err, ErrNoEAN) {
			respond.Error(w, http.StatusNotFound, "Registro sem EAN")
			return
		}
		if err != nil {
			respond.Error(w, http.StatusUnprocessableEntity, "EAN não pode ser codificado")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = w.Write(img)
	}
}

func RemessaLabelsQueryHandler(repo *Repository, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remessa := strings.TrimSpace(chi.URLParam(r, "remessa"))
		if remessa == "" {
			respond.Error(w, http.StatusBadRequest, "Remessa é obrigatória")
			return
		}
		records, err := repo.ListByRemessa(r.Context(), remessa)
		if err != nil {
			slog.Error("list remessa failed", slog.String("remessa", remessa), slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro ao carregar remessa")
			return
		}
		if len(records) == 0 {
			respond.Error(w, http.StatusNotFound, "Remessa não encontrada")
			return
		}
		pdf, err := renderRemessaLabelsPDF(remessa, records, now())
		if err != nil {
			slog.Error("render labels failed", slog.String("remessa", remessa), slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro ao gerar etiquetas")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "remessa_"+remessa+".pdf"))
		_, _ = w.Write(pdf)
	}
}

func ExportQueryHandler(exporter *Exporter, observer ExportObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		format := q.Get("format")
		res, err := exporter.Export(r.Context(), "filtered", format, q.Get("encoding"), FiltersFromQuery(q))
		switch {
		case errors.Is(err, ErrExportFormat):
			respond.Error(w, http.StatusBadRequest, "Formato inválido. Use excel ou csv")
			return
		case errors.Is(err, ErrNoRecords):
			respond.Error(w, http.StatusNotFound, "Nenhum registro encontrado para os filtros especificados")
			return
		case err != nil:
			slog.Error("export failed", slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro na exportação")
			return
		}
		observeExport(observer, format)
		respond.JSON(w, http.StatusOK, exportResponse(res, ""))
	}
}

func ExportCustomCommandHandler(exporter *Exporter, observer ExportObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil && err != io.EOF {
			respond.Error(w, http.StatusBadRequest, "Payload inválido")
			return
		}
		filters, err := req.Filters()
		switch {
		case errors.Is(err, ErrRemessaRequired):
			respond.Error(w, http.StatusBadRequest, "Remessa é obrigatória para este tipo de exportação")
			return
		case errors.Is(err, ErrDateRequired):
			respond.Error(w, http.StatusBadRequest, "Pelo menos uma data deve ser informada")
			return
		case err != nil:
			respond.Error(w, http.StatusBadRequest, "Tipo de exportação inválido")
			return
		}

		exportType := strings.TrimSpace(req.ExportType)
		if exportType == "" {
			exportType = "all"
		}
		res, err := exporter.Export(r.Context(), exportType, FormatExcel, "", filters)
		if errors.Is(err, ErrNoRecords) {
			respond.Error(w, http.StatusNotFound, "Nenhum registro encontrado para os filtros especificados")
			return
		}
		if err != nil {
			slog.Error("custom export failed", slog.String("export_type", exportType), slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro na exportação")
			return
		}
		observeExport(observer, FormatExcel)
		msg := fmt.Sprintf("Exportação concluída com sucesso! %d registros exportados.", res.TotalRecords)
		respond.JSON(w, http.StatusOK, exportResponse(res, msg))
	}
}

func UploadsQueryHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := repo.ListUploads(r.Context(), intParam(r.URL.Query().Get("limit"), 20))
		if err != nil {
			slog.Error("list uploads failed", slog.Any("err", err))
			respond.Error(w, http.StatusInternalServerError, "Erro ao listar uploads")
			return
		}
		respond.OK(w, "", rows)
	}
}

func exportResponse(res ExportResult, message string) map[string]any {
	out := map[string]any{
		"success":       true,
		"download_url":  res.DownloadURL,
		"filename":      res.Filename,
		"total_records": res.TotalRecords,
	}
	if message != "" {
		out["message"] = message
	}
	return out
}

func observeExport(observer ExportObserver, format string) {
	if observer == nil {
		return
	}
	if strings.EqualFold(strings.TrimSpace(format), FormatCSV) {
		observer.ObserveExport(FormatCSV)
		return
	}
	observer.ObserveExport(FormatExcel)
}

func loadRecord(w http.ResponseWriter, r *http.Request, repo *Repository) (Record, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "ID inválido")
		return Record{}, false
	}
	rec, err := repo.LoadByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		respond.Error(w, http.StatusNotFound, "Registro não encontrado")
		return Record{}, false
	}
	if err != nil {
		slog.Error("load record failed", slog.Int64("id", id), slog.Any("err", err))
		respond.Error(w, http.StatusInternalServerError, "Erro ao obter registro")
		return Record{}, false
	}
	return rec, true
}

func intParam(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
