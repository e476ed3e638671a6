package embalagem

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"packdash/infrastructure/audit"
	"packdash/infrastructure/ingest"
	"packdash/infrastructure/sqlite"
	"packdash/models"
)

// insertChunkRows keeps each multi-row INSERT under SQLite's bound
// parameter limit.
const insertChunkRows = 500

const selectColumns = `id, loja, remessa, local, ordem, posicao_deposito, codigo,
       descricao_produto, um, qtde_emb, qtde_cx, qtde_um, estoque, ean,
       status, usuario, data_registro`

// Repository reads and writes temp_embalagem.
type Repository struct {
	DB    *sqlite.DB
	Audit *audit.Service
}

func NewRepository(db *sqlite.DB, auditSvc *audit.Service) *Repository {
	return &Repository{DB: db, Audit: auditSvc}
}

// InsertBatch writes items and the upload run in one transaction; either
// every row lands or none does.
func (r *Repository) InsertBatch(ctx context.Context, items []models.PackagingLineItem) error {
	if len(items) == 0 {
		return nil
	}
	info, ok := ingest.BatchInfoFrom(ctx)
	if !ok {
		info = ingest.BatchInfo{ID: uuid.NewString(), TotalReceived: len(items)}
	}

	return r.DB.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for start := 0; start < len(items); start += insertChunkRows {
			end := min(start+insertChunkRows, len(items))
			query, args := insertStatement(items[start:end])
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert line items: %w", err)
			}
		}

		run := &models.UploadRun{
			ID:             info.ID,
			Filename:       info.Filename,
			TotalReceived:  info.TotalReceived,
			InsertedCount:  len(items),
			DuplicateCount: info.DuplicatesFound,
		}
		if _, err := tx.NewInsert().Model(run).Exec(ctx); err != nil {
			return fmt.Errorf("record upload run: %w", err)
		}
		return r.Audit.Write(ctx, tx, audit.SystemActor, "upload.insert", "upload_run", run.ID, nil, run)
	})
}

func insertStatement(items []models.PackagingLineItem) (string, []any) {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(models.TupleColumns)), ", ") + ")"
	var b strings.Builder
	b.WriteString("INSERT INTO temp_embalagem (")
	b.WriteString(strings.Join(models.TupleColumns, ", "))
	b.WriteString(") VALUES ")
	args := make([]any, 0, len(items)*len(models.TupleColumns))
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
		args = append(args, item.ToTuple()...)
	}
	return b.String(), args
}

func (f Filters) where() (string, []any) {
	var conds []string
	var args []any
	if f.DataInicio != "" {
		conds = append(conds, "DATE(data_registro) >= ?")
		args = append(args, f.DataInicio)
	}
	if f.DataFim != "" {
		conds = append(conds, "DATE(data_registro) <= ?")
		args = append(args, f.DataFim)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Remessa != "" {
		conds = append(conds, "remessa LIKE ?")
		args = append(args, "%"+f.Remessa+"%")
	}
	if f.Loja != "" {
		conds = append(conds, "loja LIKE ?")
		args = append(args, "%"+f.Loja+"%")
	}
	if f.Codigo != "" {
		conds = append(conds, "codigo LIKE ?")
		args = append(args, "%"+f.Codigo+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPage returns one page of the filtered listing, newest first.
func (r *Repository) ListPage(ctx context.Context, page, perPage int, f Filters) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	out := Page{Records: make([]Record, 0), CurrentPage: page, PerPage: perPage}
	where, args := f.where()
	err := r.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw("SELECT COUNT(*) FROM temp_embalagem"+where, args...).Scan(ctx, &out.TotalRecords); err != nil {
			return fmt.Errorf("count line items: %w", err)
		}
		if out.TotalRecords == 0 {
			return nil
		}
		q := `SELECT ` + selectColumns + `,
       strftime('%d/%m/%Y %H:%M', data_registro) AS data_registro_formatted
FROM temp_embalagem` + where + `
ORDER BY data_registro DESC, id DESC
LIMIT ? OFFSET ?`
		pageArgs := append(append([]any{}, args...), perPage, (page-1)*perPage)
		if err := tx.NewRaw(q, pageArgs...).Scan(ctx, &out.Records); err != nil {
			return fmt.Errorf("list line items: %w", err)
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}

	out.TotalPages = int(math.Ceil(float64(out.TotalRecords) / float64(perPage)))
	out.HasNext = page < out.TotalPages
	out.HasPrev = page > 1
	return out, nil
}

// LoadByID returns sql.ErrNoRows when the record does not exist.
func (r *Repository) LoadByID(ctx context.Context, id int64) (Record, error) {
	var rec Record
	err := r.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return loadByID(ctx, tx, id, &rec)
	})
	return rec, err
}

func loadByID(ctx context.Context, tx bun.Tx, id int64, rec *Record) error {
	return tx.NewRaw(`SELECT `+selectColumns+`,
       strftime('%d/%m/%Y %H:%M:%S', data_registro) AS data_registro_formatted
FROM temp_embalagem
WHERE id = ?`, id).Scan(ctx, rec)
}

type statsRow struct {
	TotalRemessas int `bun:"total_remessas"`
	Pendentes     int `bun:"pendentes"`
	EmSeparacao   int `bun:"em_separacao"`
	Finalizados   int `bun:"finalizados"`
	Faturados     int `bun:"faturados"`
	TotalItens    int `bun:"total_itens"`
	ItensComCorte int `bun:"itens_com_corte"`
}

// LoadDashboardStats aggregates the whole table. Cut items are finished or
// invoiced lines with nothing packed.
func (r *Repository) LoadDashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var row statsRow
	err := r.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT
  COUNT(DISTINCT remessa) AS total_remessas,
  COALESCE(SUM(CASE WHEN status = 'Pendente' THEN 1 ELSE 0 END), 0) AS pendentes,
  COALESCE(SUM(CASE WHEN status = 'em_separacao' THEN 1 ELSE 0 END), 0) AS em_separacao,
  COALESCE(SUM(CASE WHEN status = 'Finalizado' THEN 1 ELSE 0 END), 0) AS finalizados,
  COALESCE(SUM(CASE WHEN status = 'Faturado' THEN 1 ELSE 0 END), 0) AS faturados,
  COALESCE(SUM(CASE WHEN status IN ('Finalizado', 'Faturado') THEN 1 ELSE 0 END), 0) AS total_itens,
  COALESCE(SUM(CASE WHEN status IN ('Finalizado', 'Faturado') AND qtde_emb = 0 THEN 1 ELSE 0 END), 0) AS itens_com_corte
FROM temp_embalagem`).Scan(ctx, &row)
	})
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("load dashboard stats: %w", err)
	}
	return models.DashboardStats{
		TotalRemessas:   row.TotalRemessas,
		Pendentes:       row.Pendentes,
		EmSeparacao:     row.EmSeparacao,
		Finalizados:     row.Finalizados,
		Faturados:       row.Faturados,
		TotalItens:      row.TotalItens,
		ItensComCorte:   row.ItensComCorte,
		PercentualCorte: models.CutPercentage(row.ItensComCorte, row.TotalItens),
	}, nil
}

// UpdateStatus moves a record to status and assigns usuario (empty clears
// it). Returns sql.ErrNoRows for an unknown id.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status models.Status, usuario string) (Record, error) {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return Record{}, err
	}
	var user *string
	if u := strings.TrimSpace(usuario); u != "" {
		user = &u
	}

	var after Record
	err := r.DB.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before Record
		if err := loadByID(ctx, tx, id, &before); err != nil {
			return err
		}
		if _, err := tx.NewRaw(`UPDATE temp_embalagem SET status = ?, usuario = ? WHERE id = ?`, string(status), user, id).Exec(ctx); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if err := loadByID(ctx, tx, id, &after); err != nil {
			return err
		}
		return r.Audit.Write(ctx, tx, usuario, "line_item.status", "temp_embalagem", strconv.FormatInt(id, 10),
			map[string]any{"status": before.Status, "usuario": before.Usuario},
			map[string]any{"status": after.Status, "usuario": after.Usuario})
	})
	if err != nil {
		return Record{}, err
	}
	return after, nil
}

// ListForExport returns every filtered record in listing order.
func (r *Repository) ListForExport(ctx context.Context, f Filters) ([]Record, error) {
	rows := make([]Record, 0)
	where, args := f.where()
	err := r.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT `+selectColumns+`,
       strftime('%d/%m/%Y %H:%M:%S', data_registro) AS data_registro_formatted
FROM temp_embalagem`+where+`
ORDER BY data_registro DESC, id DESC`, args...).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("list for export: %w", err)
	}
	return rows, nil
}

// ListByRemessa returns a shipment's lines in picking order.
func (r *Repository) ListByRemessa(ctx context.Context, remessa string) ([]Record, error) {
	rows := make([]Record, 0)
	err := r.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT `+selectColumns+`,
       strftime('%d/%m/%Y %H:%M', data_registro) AS data_registro_formatted
FROM temp_embalagem
WHERE remessa = ?
ORDER BY loja, ordem, posicao_deposito, id`, remessa).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("list remessa %s: %w", remessa, err)
	}
	return rows, nil
}

// RecordExportRun stores a generated export.
func (r *Repository) RecordExportRun(ctx context.Context, run *models.ExportRun) error {
	return r.DB.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(run).Exec(ctx); err != nil {
			return fmt.Errorf("record export run: %w", err)
		}
		return r.Audit.Write(ctx, tx, audit.SystemActor, "export.create", "export_run", strconv.FormatInt(run.ID, 10), nil, run)
	})
}

// ListUploads returns the most recent upload runs.
func (r *Repository) ListUploads(ctx context.Context, limit int) ([]UploadSummary, error) {
	if limit < 1 {
		limit = 20
	}
	rows := make([]UploadSummary, 0)
	err := r.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT id, filename, total_received, inserted_count, duplicate_count,
       strftime('%d/%m/%Y %H:%M', created_at) AS created_at_display
FROM upload_runs
ORDER BY upload_runs.created_at DESC, upload_runs.rowid DESC
LIMIT ?`, limit).Scan(ctx, &rows)
	})
	return rows, err
}
