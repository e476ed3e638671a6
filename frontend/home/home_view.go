package home

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"packdash/frontend/shared/html"
)

// Setting is one row of the configuration page.
type Setting struct {
	Name  string
	Value string
}

func IndexPage() templ.Component {
	return html.Layout("Dashboard Principal", "/", html.Raw(`<section class="cards">`+
		`<a class="card" href="/embalagem"><h2>Embalagem</h2><p>Upload de planilhas, acompanhamento e exportação.</p></a>`+
		`<a class="card" href="/shelf-life"><h2>Shelf Life</h2><p>Controle de validade.</p></a>`+
		`<a class="card" href="/configuracoes"><h2>Configurações</h2><p>Parâmetros da aplicação.</p></a>`+
		`</section>`))
}

func ShelfLifePage() templ.Component {
	return html.Layout("Shelf Life", "/shelf-life", html.Raw(`<section><h1>Shelf Life</h1><p>Módulo em desenvolvimento.</p></section>`))
}

func SettingsPage(settings []Setting) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section><h1>Configurações</h1><table class="settings"><tbody>`); err != nil {
			return err
		}
		for _, s := range settings {
			if _, err := io.WriteString(w, `<tr><th>`+templ.EscapeString(s.Name)+`</th><td>`+templ.EscapeString(s.Value)+`</td></tr>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></section>`)
		return err
	})
	return html.Layout("Configurações", "/configuracoes", body)
}
