package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/flatjson/internal/artifact"
	"github.com/dgallion1/flatjson/internal/pipeline"
	"github.com/dgallion1/flatjson/internal/store"
)

const maxListedArtifacts = 1000

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleListArtifacts lists what the store holds for a job.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	jobID := chi.URLParam(r, "jobID")
	objs, err := s.objects.ListObjects(r.Context(), jobID+"/", maxListedArtifacts)
	if err != nil {
		jsonError(w, "failed to list artifacts: "+err.Error(), http.StatusBadGateway)
		return
	}

	type listed struct {
		store.Object
		URL string `json:"url"`
	}
	out := make([]listed, 0, len(objs))
	for _, o := range objs {
		out = append(out, listed{Object: o, URL: s.links.PublicURL(o.Key)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "artifacts": out})
}

// handleGetArtifact proxies one stored artifact.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := sanitizeFilename(chi.URLParam(r, "name"))
	key := chi.URLParam(r, "jobID") + "/" + name
	data, err := s.objects.GetObject(r.Context(), key)
	if err != nil {
		jsonError(w, "failed to fetch artifact: "+err.Error(), http.StatusBadGateway)
		return
	}
	if data == nil {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Write(data)
}

// handleDeleteArtifacts removes every stored artifact of a job.
func (s *Server) handleDeleteArtifacts(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")
	if job := s.orchestrator.GetJob(jobID); job != nil {
		switch job.Snapshot().Status {
		case pipeline.StatusQueued, pipeline.StatusUploading:
			jsonError(w, "job is still uploading", http.StatusConflict)
			return
		}
	}

	objs, err := s.objects.ListObjects(ctx, jobID+"/", maxListedArtifacts)
	if err != nil {
		jsonError(w, "failed to list artifacts: "+err.Error(), http.StatusBadGateway)
		return
	}
	deleted, failed := 0, 0
	for _, o := range objs {
		if err := s.objects.DeleteObject(ctx, o.Key); err != nil {
			s.log.Warn("delete artifact", "key", o.Key, "error", err)
			failed++
			continue
		}
		deleted++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  jobID,
		"deleted": deleted,
		"failed":  failed,
	})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.objects == nil {
		jsonError(w, "artifacts are served from /artifacts/ when no object store is configured", http.StatusNotImplemented)
		return false
	}
	return true
}

func contentTypeFor(name string) string {
	switch name {
	case artifact.ArchiveName:
		return artifact.ContentTypeZip
	case artifact.ReportName:
		return artifact.ContentTypeDocx
	}
	return artifact.ContentTypeJSON
}
