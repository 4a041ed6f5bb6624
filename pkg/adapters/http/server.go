package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/otsync"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Lister is implemented by snapshot sources that can enumerate their documents.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Server serves document snapshots for catch-up resyncs.
type Server struct {
	Source ports.SnapshotSource
	Logger *slog.Logger
}

// NewHandler creates a new HTTP handler for source.
//
//	GET /healthz
//	GET /info
//	GET /openapi.yaml
//	GET /documents                 (when source implements Lister)
//	GET /documents/{id}/snapshot
func NewHandler(source ports.SnapshotSource, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{Source: source, Logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/info", server.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", server.ListDocuments)
		r.Get("/{id}/snapshot", server.GetSnapshot)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSnapshot handles GET /documents/{id}/snapshot.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid format for parameter id: %s", err), http.StatusBadRequest)
		return
	}

	snap, err := s.Source.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("GetSnapshot failed", "document", id, "err", err)
		http.Error(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if spec, err := GetSpec(); err == nil && spec.Info != nil {
		apiVersion = spec.Info.Version
	} else if err != nil {
		s.Logger.Error("failed to load OpenAPI spec", "err", err)
	}
	writeJSON(w, map[string]string{
		"app":         "otsync-http",
		"version":     strings.TrimSpace(otsync.Version),
		"api_version": apiVersion,
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.Source.(Lister)
	if !ok {
		http.Error(w, "listing not supported", http.StatusNotImplemented)
		return
	}
	ids, err := lister.List(r.Context())
	if err != nil {
		s.Logger.Error("ListDocuments failed", "err", err)
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, map[string][]string{"documents": ids})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
