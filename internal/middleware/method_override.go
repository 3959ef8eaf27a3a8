package middleware

import (
	"mime"
	"net/http"
	"strings"
)

// MethodOverrideParam is the query or form field HTML forms use to ask for
// another method.
const MethodOverrideParam = "_method"

var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets a POST be routed as PUT, PATCH or DELETE. It must be
// installed before routing happens.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := r.URL.Query().Get(MethodOverrideParam)
			if method == "" && isFormRequest(r) {
				method = r.PostFormValue(MethodOverrideParam)
			}
			if m := strings.ToUpper(method); overridableMethods[m] {
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}
