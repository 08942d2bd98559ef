package rest

import (
	"errors"
	"net/http"

	"project-tracker/core"
	"project-tracker/pkg/res"
)

func WriteErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidArgs):
		res.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrUnauthenticated):
		res.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, core.ErrForbidden):
		res.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, core.ErrNotFound):
		res.Error(w, err.Error(), http.StatusNotFound)
	default:
		res.Error(w, "internal error", http.StatusInternalServerError)
	}
}
