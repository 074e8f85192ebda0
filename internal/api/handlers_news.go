package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/history"
)

func (s *Server) handleGetNews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.store.Read()
		if snap.Empty() {
			respondError(w, http.StatusBadRequest, "Cache not ready, please refresh first.")
			return
		}
		respondJSON(w, http.StatusOK, snap.Records)
	}
}

func (s *Server) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorizeRefresh(r) {
			s.logger.Debug("refresh rejected", "request_id", RequestID(r.Context()))
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// A client hanging up must not abort a refresh that is writing the cache.
		out, err := s.refresher.Refresh(context.WithoutCancel(r.Context()))
		if err != nil {
			s.logger.Warn("manual refresh failed, serving previous cache", "error", err, "request_id", RequestID(r.Context()))
		} else {
			s.logger.Info("manual refresh done", "status", out.Status, "records", out.Records)
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Cache refreshed!",
			"data":    s.store.Read().Records,
		})
	}
}

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			respondError(w, http.StatusNotFound, "History is disabled")
			return
		}
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				respondError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = min(n, 200)
		}

		entries, err := s.history.List(r.Context(), limit)
		if err != nil {
			s.logger.Error("failed to list history", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to load history")
			return
		}
		respondJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleHistorySnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			respondError(w, http.StatusNotFound, "History is disabled")
			return
		}
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid snapshot id")
			return
		}

		snap, err := s.history.Get(r.Context(), id)
		if errors.Is(err, history.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Snapshot not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to load snapshot", "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to load snapshot")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"timestamp":     snap.Timestamp.UnixMilli(),
			"date":          snap.Date,
			"provider":      snap.Provider,
			"opportunities": snap.Records,
		})
	}
}

type healthResponse struct {
	Status     string     `json:"status"`
	Records    int        `json:"records"`
	UpdatedAt  *time.Time `json:"updated_at"`
	Provider   string     `json:"provider,omitempty"`
	Refreshing bool       `json:"refreshing"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.store.Read()
		resp := healthResponse{
			Status:     "ok",
			Records:    len(snap.Records),
			Provider:   snap.Provider,
			Refreshing: s.refresher.Running(),
		}
		if !snap.Timestamp.IsZero() {
			ts := snap.Timestamp.UTC()
			resp.UpdatedAt = &ts
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
