// Package infer recovers a resource name from URL-like fields of
// intercepted bridge records. The address a call actually targeted is more
// trustworthy than the label the client declared, so an inferred name
// overrides the declared one.
package infer

import (
	"regexp"

	"github.com/nuitap/nuitap/internal/model"
)

// hostPattern matches scheme://<token>/... where the token is the
// resource name embedded as the authority of an intercepted call.
var hostPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://([A-Za-z0-9_-]+)/`)

// Resource returns the resource name inferred from rec, if any.
// Inference only applies to nui_to_lua records carrying a callback URL and
// fetch_call records carrying a url; everything else keeps the declared
// name. A non-matching address is a miss, never an error.
func Resource(rec model.Record) (string, bool) {
	var addr string
	switch rec.Type() {
	case model.TypeNUIToLua:
		addr = rec.String("callback")
	case model.TypeFetchCall:
		addr = rec.String("url")
	default:
		return "", false
	}
	if addr == "" {
		return "", false
	}
	m := hostPattern.FindStringSubmatch(addr)
	if m == nil {
		return "", false
	}
	return m[1], true
}
