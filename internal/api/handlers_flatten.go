package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/flatjson/internal/artifact"
	"github.com/dgallion1/flatjson/internal/collection"
	"github.com/dgallion1/flatjson/internal/decode"
	"github.com/dgallion1/flatjson/internal/flatten"
	"github.com/dgallion1/flatjson/internal/pipeline"
	"github.com/dgallion1/flatjson/internal/summary"
	"github.com/dgallion1/flatjson/internal/value"
)

const (
	msgInvalidJSON = "Valid JSON data was not provided."
	msgFetchFailed = "The JSON document could not be retrieved from json_url."
	msgNotPost     = "This was not a POST request. Send the JSON document, or {\"json_url\": \"...\"}, as the body of a POST."

	urlField = "json_url"
)

// flattenResponse is the JSON body returned for a successful flatten.
type flattenResponse struct {
	JobID       string          `json:"job_id"`
	StatusURL   string          `json:"status_url"`
	Files       []summary.Link  `json:"files"`
	Archive     summary.Link    `json:"archive"`
	Report      summary.Link    `json:"report"`
	Collections flatten.Summary `json:"collections"`
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	doc, err := decode.JSON(body)
	if err != nil {
		s.log.Info("rejected flatten body", "error", err)
		jsonError(w, msgInvalidJSON, http.StatusBadRequest)
		return
	}

	source := "body"
	if u, isURL := fetchURL(doc); isURL {
		source = "url"
		body, err = s.fetcher.Fetch(r.Context(), u)
		if err != nil {
			s.log.Warn("fetch failed", "url", u, "error", err)
			jsonError(w, msgFetchFailed, http.StatusBadRequest)
			return
		}
		doc, err = decode.JSON(body)
		if err != nil {
			s.log.Info("rejected fetched document", "url", u, "error", err)
			jsonError(w, msgInvalidJSON, http.StatusBadRequest)
			return
		}
	}

	set, err := flatten.Document(doc, s.cfg.StrictCollisions)
	if errors.Is(err, collection.ErrNameCollision) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		jsonError(w, "flatten failed", http.StatusInternalServerError)
		return
	}
	for _, c := range set.Collisions() {
		s.log.Warn("collection name collision", "collision", c.String())
	}

	files, err := bundle(set)
	if errors.Is(err, artifact.ErrUnsafeName) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		s.log.Error("encode artifacts", "error", err)
		jsonError(w, "failed to encode collections", http.StatusInternalServerError)
		return
	}

	job := pipeline.NewJob(source, body, files)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	stats := flatten.Stats(set)
	s.log.Info("flattened document", "job_id", job.ID, "source", source,
		"collections", stats.Collections, "records", stats.Records)

	links := s.linksFor(job, files)
	if wantsHTML(r) {
		page, err := summary.HTML(links)
		if err != nil {
			s.log.Error("render summary", "error", err)
			jsonError(w, "failed to render summary", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
		return
	}

	writeJSON(w, http.StatusOK, flattenResponse{
		JobID:       job.ID,
		StatusURL:   fmt.Sprintf("/api/jobs/%s", job.ID),
		Files:       links.Files,
		Archive:     links.Archive,
		Report:      links.Report,
		Collections: stats,
	})
}

func (s *Server) handleFlattenNotPost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	jsonError(w, msgNotPost, http.StatusMethodNotAllowed)
}

// readBody reads the request body within MaxBodyBytes, answering the
// request itself when that fails.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// bundle encodes one artifact per collection followed by the zip archive of
// all of them and the docx report.
func bundle(set *collection.Set) ([]artifact.File, error) {
	files, err := artifact.Encode(set)
	if err != nil {
		return nil, err
	}
	archive, err := artifact.Zip(files)
	if err != nil {
		return nil, err
	}
	report, err := artifact.Report(set)
	if err != nil {
		return nil, err
	}
	return append(files, archive, report), nil
}

func (s *Server) linksFor(job *pipeline.Job, files []artifact.File) summary.Links {
	var links summary.Links
	for _, f := range files {
		l := summary.Link{Name: f.Name, URL: s.links.PublicURL(job.Key(f.Name))}
		switch f.Name {
		case artifact.ArchiveName:
			links.Archive = l
		case artifact.ReportName:
			links.Report = l
		default:
			links.Files = append(links.Files, l)
		}
	}
	return links
}

// fetchURL reports whether doc is a request to fetch the document from a
// URL: an object whose only field is a string json_url.
func fetchURL(doc value.Value) (string, bool) {
	obj, ok := doc.(*value.Object)
	if !ok || obj.Len() != 1 {
		return "", false
	}
	v, ok := obj.Get(urlField)
	if !ok {
		return "", false
	}
	sc, ok := v.(value.Scalar)
	if !ok {
		return "", false
	}
	u, ok := sc.Interface().(string)
	return u, ok
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
