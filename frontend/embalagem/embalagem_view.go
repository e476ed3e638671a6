package embalagem

import (
	"github.com/a-h/templ"

	"packdash/frontend/shared/html"
	"packdash/models"
)

func statusOptions() string {
	out := `<option value="">Todos</option>`
	for _, s := range models.Statuses {
		v := templ.EscapeString(string(s))
		out += `<option value="` + v + `">` + v + `</option>`
	}
	return out
}

// EmbalagemPage is the shell; stats, listing and uploads load from the JSON API.
func EmbalagemPage() templ.Component {
	return html.Layout("Embalagem", "/embalagem", html.Raw(`<section id="embalagem" data-api="/api/embalagem">`+
		`<h1>Embalagem</h1>`+
		`<div class="stats" id="stats">`+
		`<div class="stat"><span>Remessas</span><strong data-stat="total_remessas">-</strong></div>`+
		`<div class="stat"><span>Pendentes</span><strong data-stat="pendentes">-</strong></div>`+
		`<div class="stat"><span>Em Separação</span><strong data-stat="em_separacao">-</strong></div>`+
		`<div class="stat"><span>Itens</span><strong data-stat="total_itens">-</strong></div>`+
		`<div class="stat"><span>Finalizados</span><strong data-stat="finalizados">-</strong></div><div class="stat"><span>Faturados</span><strong data-stat="faturados">-</strong></div>`+
		`<div class="stat"><span>% Corte</span><strong data-stat="percentual_corte">-</strong></div>`+
		`</div>`+
		`<form id="upload-form" enctype="multipart/form-data">`+
		`<input type="file" name="file" accept=".xlsx,.xls" required>`+
		`<button type="submit">Enviar planilha</button>`+
		`</form>`+
		`<div id="upload-result" role="status"></div>`+
		`<form id="filters">`+
		`<input type="date" name="data_inicio"><input type="date" name="data_fim">`+
		`<select name="status">`+statusOptions()+`</select>`+
		`<input type="text" name="remessa" placeholder="Remessa">`+
		`<input type="text" name="loja" placeholder="Loja">`+
		`<input type="text" name="codigo" placeholder="Código">`+
		`<button type="submit">Filtrar</button>`+
		`<button type="button" data-export="excel">Exportar Excel</button>`+
		`<button type="button" data-export="csv">Exportar CSV</button>`+
		`</form>`+
		`<table id="records"><thead><tr>`+
		`<th>Remessa</th><th>Loja</th><th>Código</th><th>Descrição</th><th>Qtde Emb</th><th>EAN</th><th>Status</th><th>Usuário</th><th>Data</th>`+
		`</tr></thead><tbody></tbody></table>`+
		`<nav id="pager"></nav>`+
		`<h2>Últimos uploads</h2><ul id="uploads"></ul>`+
		`</section>`))
}
