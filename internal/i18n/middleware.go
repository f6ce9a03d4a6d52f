package i18n

import "net/http"

// LangCookie remembers a language picked with the ?lang= switch.
const LangCookie = "lang"

// Middleware negotiates the UI language for each request and injects the
// matching localizer. An explicit ?lang= wins and is remembered in a
// cookie; otherwise the cookie, then Accept-Language, then the default.
func Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if q := r.URL.Query().Get("lang"); q != "" {
				lang := Match(q)
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    lang,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
				prefs = append(prefs, lang)
			}
			if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
				prefs = append(prefs, c.Value)
			}
			if al := r.Header.Get("Accept-Language"); al != "" {
				prefs = append(prefs, al)
			}

			lang := Match(prefs...)
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
			ctx = WithLang(ctx, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
