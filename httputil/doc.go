// Package httputil holds the small HTTP helpers shared by the middleware
// and API layers: the JSON response envelope and request parsing utilities.
package httputil
