package home

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sharedcontext "packdash/frontend/shared/context"
)

func TestThemeCommandHandler(t *testing.T) {
	cases := map[string]string{
		`{"theme":"dark"}`: "dark",
		`{"theme":"pink"}`: "light",
		`{}`:               "light",
		``:                 "light",
	}
	for body, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader(body))
		rec := httptest.NewRecorder()
		ThemeCommandHandler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: expected 200, got %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"theme":"`+want+`"`) || !strings.Contains(rec.Body.String(), `"status":"success"`) {
			t.Fatalf("body %q: unexpected response %s", body, rec.Body.String())
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != sharedcontext.ThemeCookie || cookies[0].Value != want {
			t.Fatalf("body %q: unexpected cookies %v", body, cookies)
		}
	}
}

func TestThemeCommandHandlerRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ThemeCommandHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSettingsPageEscapesValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/configuracoes", nil)
	req = req.WithContext(sharedcontext.NewContextWithTheme(req.Context(), "dark"))
	rec := httptest.NewRecorder()
	SettingsPageQueryHandler([]Setting{{Name: "EXPORT_DIR", Value: "<data>"}}).ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "&lt;data&gt;") {
		t.Fatalf("expected escaped value, got %s", body)
	}
	if !strings.Contains(body, `class="theme-dark"`) {
		t.Fatalf("expected dark theme class")
	}
	if !strings.Contains(body, `<a href="/configuracoes" class="active">`) {
		t.Fatalf("expected active nav link")
	}
}
