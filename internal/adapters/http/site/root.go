// Package site serves the embedded landing page at /.
package site

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Register attaches the landing page route to r.
func Register(_ context.Context, r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Handle("/", http.FileServer(FS())).Methods(http.MethodGet, http.MethodHead)
}
