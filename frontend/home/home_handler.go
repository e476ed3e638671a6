package home

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	sharedcontext "packdash/frontend/shared/context"
	"packdash/frontend/shared/respond"
)

func IndexPageQueryHandler() http.HandlerFunc {
	return renderPage(IndexPage(), "failed to render dashboard page")
}

func ShelfLifePageQueryHandler() http.HandlerFunc {
	return renderPage(ShelfLifePage(), "failed to render shelf life page")
}

// SettingsPageQueryHandler shows the effective runtime configuration.
func SettingsPageQueryHandler(settings []Setting) http.HandlerFunc {
	return renderPage(SettingsPage(settings), "failed to render settings page")
}

func renderPage(page templ.Component, failure string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Render(r.Context(), w); err != nil {
			http.Error(w, failure, http.StatusInternalServerError)
			return
		}
	}
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// ThemeCommandHandler stores the chosen theme in a cookie and echoes it.
func ThemeCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req themeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil && err != io.EOF {
			respond.Error(w, http.StatusBadRequest, "invalid theme payload")
			return
		}
		theme := sharedcontext.NormalizeTheme(strings.TrimSpace(req.Theme))
		http.SetCookie(w, &http.Cookie{
			Name:     sharedcontext.ThemeCookie,
			Value:    theme,
			Path:     "/",
			MaxAge:   365 * 24 * 60 * 60,
			SameSite: http.SameSiteLaxMode,
		})
		respond.JSON(w, http.StatusOK, map[string]string{"theme": theme, "status": "success"})
	}
}
