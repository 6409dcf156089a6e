package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacklau/oppradar/internal/feed"
	"github.com/jacklau/oppradar/internal/store"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListOpportunities handles GET /api/opportunities?sort=demand|fresh
func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = store.SortDemand
	}

	items, err := s.store.ListOpportunities(r.Context(), sort)
	if errors.Is(err, store.ErrInvalidSort) {
		s.respondError(w, http.StatusBadRequest, "invalid sort option")
		return
	}
	if err != nil {
		s.log.Error("listing opportunities", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if items == nil {
		items = []store.Opportunity{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": items, "sort": sort})
}

// handleGetOpportunity handles GET /api/opportunities/{id}
func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.store.GetCluster(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "opportunity not found")
		return
	}
	if err != nil {
		s.log.Error("getting opportunity", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}

	evidence, err := s.store.ListClusterPosts(r.Context(), id)
	if err != nil {
		s.log.Error("listing cluster posts", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"item": item, "evidence": evidence})
}

// handleDeletePost handles DELETE /api/opportunities/{id}/posts/{postId}
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "id")
	postID := chi.URLParam(r, "postId")

	res, err := s.store.DeletePostFromCluster(r.Context(), clusterID, postID)
	if err != nil {
		s.log.Error("deleting post", "cluster", clusterID, "post", postID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	if !res.Deleted {
		s.respondError(w, http.StatusNotFound, "post not found for this opportunity")
		return
	}
	s.log.Info("post removed from cluster", "cluster", clusterID, "post", postID, "cluster_removed", res.ClusterRemoved)
	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "clusterRemoved": res.ClusterRemoved})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.runner.Settings(r.Context())
	if err != nil {
		s.log.Error("loading settings", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// settingsRequest leaves omitted fields at their stored values.
type settingsRequest struct {
	Sources                  []string `json:"sources"`
	HeuristicPatterns        []string `json:"heuristicPatterns"`
	ClusterDistanceThreshold *float64 `json:"clusterDistanceThreshold"`
	CronIngestEnabled        *bool    `json:"cronIngestEnabled"`
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	current, err := s.runner.Settings(r.Context())
	if err != nil {
		s.log.Error("loading settings", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	next := current
	if req.Sources != nil {
		next.Sources = req.Sources
	}
	if req.HeuristicPatterns != nil {
		next.HeuristicPatterns = req.HeuristicPatterns
	}
	if req.ClusterDistanceThreshold != nil {
		next.ClusterDistanceThreshold = *req.ClusterDistanceThreshold
	}
	if req.CronIngestEnabled != nil {
		next.CronIngestEnabled = *req.CronIngestEnabled
	}

	saved, err := s.runner.SaveSettings(r.Context(), next)
	if errors.Is(err, store.ErrInvalidSettings) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.log.Error("saving settings", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "settings": saved})
}

// runStatus maps engine errors to HTTP status codes.
func runStatus(err error) int {
	switch {
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidSettings), errors.Is(err, feed.ErrNoSources):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleRun handles POST /api/engine/run. The run is detached from the
// request context so a dropped client does not abort it midway.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	stats, err := s.runner.Ingest(context.WithoutCancel(r.Context()))
	if err != nil {
		if !errors.Is(err, ErrRunInProgress) {
			s.log.Error("engine run failed", "error", err)
		}
		s.respondError(w, runStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) handleReanalyze(reuse bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.runner.Reanalyze(context.WithoutCancel(r.Context()), reuse)
		if err != nil {
			if !errors.Is(err, ErrRunInProgress) {
				s.log.Error("reanalysis failed", "reuse", reuse, "error", err)
			}
			s.respondError(w, runStatus(err), err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.progress.Snapshot())
}
