package server

import (
	"net/http"
	"net/url"
)

// flashCookie carries a one-shot notice across a redirect, mirroring
// conventional web-framework flash semantics.
const flashCookie = "pat_flash"

func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending flash message.
func takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

// redirectWithFlash answers 303 and stashes the notice for the next
// request.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	setFlash(w, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
