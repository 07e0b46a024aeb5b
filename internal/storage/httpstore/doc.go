// Package httpstore reads objects from a publicly readable container over
// plain HTTP(S): <endpoint>/<container>/<key>. Optional basic auth is sent
// when credentials are present.
package httpstore
