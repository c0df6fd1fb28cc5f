// Package web holds the embedded browser pages: the login form and the
// polling viewer. Presentation only; all data comes from the JSON API.
package web

import _ "embed"

//go:embed login.html
var LoginPage string

//go:embed viewer.html
var ViewerPage string
