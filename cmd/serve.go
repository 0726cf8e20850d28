package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/encoder"
	"github.com/triage-labs/acr-eval/internal/index"
	"github.com/triage-labs/acr-eval/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve catalog search over HTTP",
	Long: `Starts an HTTP server exposing nearest-variant search and catalog
lookup. The catalog is embedded into the index at startup when the
index is empty.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("catalog", "", "path to the catalog file (pipe-delimited CSV or XLSX)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	_ = serveCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("serve"); err != nil {
		return err
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	enc, err := newEncoder()
	if err != nil {
		return err
	}

	idx, closeIdx, err := newIndex(ctx, enc.Dimension())
	if err != nil {
		return err
	}
	defer closeIdx()

	count, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		zap.L().Info("index empty, embedding catalog", zap.Int("entries", cat.Len()))
		if err := indexCatalog(ctx, enc, idx, cat); err != nil {
			return err
		}
	}

	port := servePort
	if port == 0 {
		port = cfg.Server.Port
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: newRouter(cat, enc, idx),
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		srv.Shutdown(ctx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

// newRouter builds the HTTP API over a loaded catalog and populated
// index.
func newRouter(cat *catalog.Catalog, enc encoder.Encoder, idx index.Index) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/search", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Text string `json:"text"`
			K    int    `json:"k"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
			return
		}
		if body.K <= 0 {
			body.K = 1
		}

		vector, err := enc.Encode(req.Context(), body.Text)
		if err != nil {
			zap.L().Error("search encode failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "embedding failed"})
			return
		}

		neighbors, err := idx.Nearest(req.Context(), vector, body.K)
		if err != nil {
			zap.L().Error("search query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
			return
		}

		results := make([]model.QueryResult, 0, len(neighbors))
		for _, n := range neighbors {
			entry, ok := cat.Entry(n.ID)
			if !ok {
				entry = &model.ScenarioEntry{Variant: n.ID}
			}
			results = append(results, model.QueryResult{
				QueryText: body.Text,
				Retrieved: entry,
				Distance:  n.Distance,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	})

	r.Get("/v1/catalog/{variant}", func(w http.ResponseWriter, req *http.Request) {
		variant := chi.URLParam(req, "variant")
		entry, ok := cat.Entry(variant)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variant not found"})
			return
		}
		condition, _ := cat.ConditionOf(variant)
		writeJSON(w, http.StatusOK, map[string]any{
			"condition": condition,
			"entry":     entry,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}
