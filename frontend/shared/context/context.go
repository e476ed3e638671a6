package context

import (
	"context"
	"net/http"
)

const (
	ThemeCookie  = "theme"
	DefaultTheme = "light"
)

type themeKey struct{}

func NewContextWithTheme(ctx context.Context, theme string) context.Context {
	return context.WithValue(ctx, themeKey{}, theme)
}

func GetThemeFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(themeKey{}).(string); ok && t != "" {
		return t
	}
	return DefaultTheme
}

// NormalizeTheme accepts "light" and "dark"; anything else is the default.
func NormalizeTheme(t string) string {
	if t == "dark" {
		return t
	}
	return DefaultTheme
}

// ThemeMiddleware carries the theme cookie into the request context.
func ThemeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		theme := DefaultTheme
		if c, err := r.Cookie(ThemeCookie); err == nil {
			theme = NormalizeTheme(c.Value)
		}
		next.ServeHTTP(w, r.WithContext(NewContextWithTheme(r.Context(), theme)))
	})
}
