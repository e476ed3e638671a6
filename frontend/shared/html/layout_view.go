package html

import (
	"context"
	"io"

	"github.com/a-h/templ"

	sharedcontext "packdash/frontend/shared/context"
	"packdash/frontend/shared/nav"
)

// Layout wraps body in the page shell with the module navigation.
func Layout(title, active string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		theme := sharedcontext.GetThemeFromContext(ctx)
		if _, err := io.WriteString(w, `<!doctype html><html lang="pt-BR"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+templ.EscapeString(title)+`</title>`+
			`<link rel="stylesheet" href="/assets/app.css"></head>`+
			`<body class="theme-`+templ.EscapeString(theme)+`"><header class="topnav"><nav>`); err != nil {
			return err
		}
		for _, item := range nav.BuildTopNav(active) {
			class := ""
			if item.Active {
				class = ` class="active"`
			}
			if _, err := io.WriteString(w, `<a href="`+templ.EscapeString(item.Href)+`"`+class+`>`+templ.EscapeString(item.Label)+`</a>`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<button type="button" id="theme-toggle">Tema</button></nav></header><main>`); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main><script src="/assets/app.js"></script></body></html>`)
		return err
	})
}

// Raw renders trusted static markup.
func Raw(markup string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}
