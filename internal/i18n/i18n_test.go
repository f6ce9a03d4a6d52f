package i18n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "AI Tutor" {
		t.Errorf("T(AppTitle) = %q, want 'AI Tutor'", got)
	}
	if got := T(ctx, "ModeAsk"); got != "Ask a Doubt" {
		t.Errorf("T(ModeAsk) = %q, want 'Ask a Doubt'", got)
	}
}

func TestTranslateHindi(t *testing.T) {
	ctx := initLang(t, "hi")

	if got := T(ctx, "AppTitle"); got != "एआई ट्यूटर" {
		t.Errorf("T(AppTitle) = %q, want 'एआई ट्यूटर'", got)
	}
	if got := T(ctx, "ButtonAsk"); got != "उत्तर पाएँ" {
		t.Errorf("T(ButtonAsk) = %q, want 'उत्तर पाएँ'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "HistoryCount", 1); got != "1 conversation remembered" {
		t.Errorf("Tp(HistoryCount, 1) = %q", got)
	}
	if got := Tp(ctx, "HistoryCount", 4); got != "4 conversations remembered" {
		t.Errorf("Tp(HistoryCount, 4) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ContentAdded", map[string]any{"Topic": "Magnets", "Subject": "Science", "Class": "Class 6"})
	if got != `Added "Magnets" to Science Class 6.` {
		t.Errorf("Td(ContentAdded) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

// Every English message must exist in every other locale.
func TestLocalesHaveSameKeys(t *testing.T) {
	read := func(name string) map[string]any {
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		return m
	}
	en := read("en.json")
	hi := read("hi.json")
	for k := range en {
		if _, ok := hi[k]; !ok {
			t.Errorf("hi.json is missing %q", k)
		}
	}
	for k := range hi {
		if _, ok := en[k]; !ok {
			t.Errorf("hi.json has extra key %q", k)
		}
	}
}

func TestMatch(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := Supported(); !slices.Contains(got, "en") || !slices.Contains(got, "hi") {
		t.Errorf("Supported() = %v", got)
	}

	tests := []struct {
		prefs []string
		want  string
	}{
		{nil, "en"},
		{[]string{"hi"}, "hi"},
		{[]string{"hi-IN,hi;q=0.9,en;q=0.8"}, "hi"},
		{[]string{"fr"}, "en"},
		{[]string{"fr", "hi"}, "hi"},
	}
	for _, tt := range tests {
		if got := Match(tt.prefs...); got != tt.want {
			t.Errorf("Match(%v) = %q, want %q", tt.prefs, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var gotLang, gotTitle string
	h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = LangFromContext(r.Context())
		gotTitle = T(r.Context(), "AppTitle")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "hi-IN")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotLang != "hi" || gotTitle != "एआई ट्यूटर" {
		t.Errorf("Accept-Language: lang=%q title=%q", gotLang, gotTitle)
	}

	// ?lang= overrides the header and is remembered.
	req = httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	req.Header.Set("Accept-Language", "hi")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if gotLang != "en" {
		t.Errorf("query override: lang=%q", gotLang)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != LangCookie || cookies[0].Value != "en" {
		t.Errorf("expected lang cookie, got %v", cookies)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LangCookie, Value: "hi"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotLang != "hi" {
		t.Errorf("cookie: lang=%q", gotLang)
	}
}
