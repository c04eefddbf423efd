package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kwv/procrustes/align"
)

// maxRequestBytes limits POST /align bodies
const maxRequestBytes = 50 << 20

// newHTTPServer creates an HTTP server with all endpoints. publisher may be
// nil, in which case results computed over HTTP are only stored.
func newHTTPServer(store *align.ResultStore, render align.RenderConfig, publisher *align.Publisher) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		status := struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasResults bool      `json:"hasResults"`
		}{
			Status:     "ok",
			Timestamp:  time.Now(),
			HasResults: store.HasResults(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := writeJSON(w, status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Run an alignment request
	mux.HandleFunc("POST /align", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			http.Error(w, "Request body too large or unreadable", http.StatusRequestEntityTooLarge)
			return
		}

		req, err := align.DecodeAlignRequest(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := req.Run()
		if err != nil {
			log.Printf("[HTTP] align %s failed: %v", req.ID, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusFor(err))
			_ = writeJSON(w, map[string]string{"id": req.ID, "error": err.Error()})
			return
		}

		summary := store.Put(req.ID, result)
		if publisher != nil {
			if err := publisher.PublishResult(summary); err != nil {
				log.Printf("Error publishing result for %s: %v", req.ID, err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := writeJSON(w, summary); err != nil {
			log.Printf("Error encoding result %s: %v", req.ID, err)
		}
	})

	// All result summaries
	mux.HandleFunc("GET /results", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := writeJSON(w, store.Summaries()); err != nil {
			log.Printf("Error encoding results: %v", err)
		}
	})

	// One result: summary JSON, or an overlay/export selected by extension
	mux.HandleFunc("GET /results/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		if summary, ok := store.Summary(name); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "no-cache")
			if err := writeJSON(w, summary); err != nil {
				log.Printf("Error encoding result %s: %v", name, err)
			}
			return
		}

		id, format, ok := splitResultName(name)
		if !ok {
			http.Error(w, "Unknown result", http.StatusNotFound)
			return
		}
		result, ok := store.Get(id)
		if !ok {
			if _, cached := store.Summary(id); cached {
				http.Error(w, "Only the summary of this result is cached; rerun the job to render it", http.StatusNotFound)
				return
			}
			http.Error(w, "Unknown result", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Cache-Control", "no-cache")
		if err := writeResult(w, format, id, result, render); err != nil {
			log.Printf("Error rendering %s for %s: %v", format, id, err)
		}
	})

	return mux
}

var contentTypes = map[string]string{
	"svg":     "image/svg+xml",
	"png":     "image/png",
	"geojson": "application/geo+json",
}

// splitResultName splits "id.svg" style names into the id and output format
func splitResultName(name string) (string, string, bool) {
	for format := range contentTypes {
		if id, ok := strings.CutSuffix(name, "."+format); ok && id != "" {
			return id, format, true
		}
	}
	return "", "", false
}

// statusFor maps alignment errors to HTTP status codes
func statusFor(err error) int {
	for _, target := range []error{
		align.ErrDimensionality,
		align.ErrShapeMismatch,
		align.ErrEmptyInput,
		align.ErrDegenerateData,
		align.ErrNonFinite,
	} {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
