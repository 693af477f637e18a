package handlers

import (
	"errors"
	"net/http"

	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

// HandlesHandler reports live handle counts and in-flight operations of b.
func HandlesHandler(b *bridge.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b == nil {
			respondWithError(w, r, errors.New("bridge not attached"))
			return
		}
		writeJSON(w, http.StatusOK, b.Stats())
	}
}
