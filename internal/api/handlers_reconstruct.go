package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/flatjson/internal/artifact"
	"github.com/dgallion1/flatjson/internal/decode"
	"github.com/dgallion1/flatjson/internal/reconstruct"
)

// handleReconstruct rebuilds a document from {"<collection>": [records...]}.
// With ?download=1 the result is sent as an attachment named after its root.
func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	v, err := decode.JSON(body)
	if err != nil {
		jsonError(w, msgInvalidJSON, http.StatusBadRequest)
		return
	}
	set, err := artifact.FromDocument(v)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := reconstruct.Reconstruct(set, reconstruct.WithLogger(s.log))
	switch {
	case errors.Is(err, reconstruct.ErrEmptySet):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.log.Info("reconstruct failed", "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	out, err := artifact.EncodeDocument(doc)
	if err != nil {
		jsonError(w, "failed to encode document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("download") == "1" {
		name := sanitizeFilename(artifact.ReconstructedName(doc))
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	w.Write(out)
}
