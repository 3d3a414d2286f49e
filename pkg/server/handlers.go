package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/metrics"
	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/render"
	"github.com/vanderheijden86/kerrigan/pkg/store"
)

// maxRecordBody caps POST /records payloads.
const maxRecordBody = 1 << 20

type healthResponse struct {
	Status  string                `json:"status"`
	Dataset string                `json:"dataset"`
	Metrics []metrics.TimingStats `json:"metrics"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type createRecordRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createRecordResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Dataset: "none", Metrics: metrics.Snapshot()}
	if s.opts.Loader != nil {
		resp.Dataset = s.opts.Loader.State().String()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) document(ctx context.Context) (*model.GraphDocument, error) {
	if s.opts.Loader == nil {
		return nil, errors.New("no dataset configured")
	}
	// The one fetch is shared by every request, so no single client may
	// cancel it. The loader's http.Client timeout still bounds it.
	res, err := s.opts.Loader.Load(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	return res.Doc, nil
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// thresholdsFromQuery reads min_strength, min_time, min_risk and search.
// Unparsable numbers fall back to 0.
func thresholdsFromQuery(q url.Values) filter.Thresholds {
	t := filter.DefaultThresholds()
	t.MinStrength = filter.ParseThreshold(q.Get("min_strength"), t.MinStrength)
	t.MinTime = filter.ParseThreshold(q.Get("min_time"), t.MinTime)
	t.MinRisk = filter.ParseThreshold(q.Get("min_risk"), t.MinRisk)
	t.SearchTerm = q.Get("search")
	return t
}

func (s *Server) derive(r *http.Request) (*filter.FilteredGraph, filter.Thresholds, error) {
	doc, err := s.document(r.Context())
	if err != nil {
		return nil, filter.Thresholds{}, err
	}
	t := thresholdsFromQuery(r.URL.Query())
	return filter.NewEngine(s.opts.Predicates).Derive(doc, t), t, nil
}

func (s *Server) scene(r *http.Request) (render.Scene, error) {
	fg, t, err := s.derive(r)
	if err != nil {
		return render.Scene{}, err
	}
	cfg := s.opts.Encode
	if by := model.Attribute(strings.ToLower(r.URL.Query().Get("color_by"))); by.IsValid() {
		cfg.ColorBy = by
	}
	enc := encode.New(cfg)

	sim := layout.New(s.opts.Layout)
	sim.SetGraph(fg, enc.LinkDistance)
	sim.Run(s.opts.LayoutTicks)

	return render.Scene{
		Graph:     fg,
		Positions: sim.Positions(),
		Encoder:   enc,
		Search:    t.SearchTerm,
		Title:     fmt.Sprintf("%d nodes, %d links", len(fg.Nodes), len(fg.Links)),
	}, nil
}

func (s *Server) renderPNG(w http.ResponseWriter, r *http.Request) {
	s.renderWith(w, r, "image/png", render.PNG)
}

func (s *Server) renderSVG(w http.ResponseWriter, r *http.Request) {
	s.renderWith(w, r, "image/svg+xml", render.SVG)
}

func (s *Server) renderWith(w http.ResponseWriter, r *http.Request, contentType string, draw func(io.Writer, render.Scene) error) {
	scene, err := s.scene(r)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := draw(&buf, scene); err != nil {
		respondError(w, http.StatusInternalServerError, "render failed: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "record store is not configured")
		return
	}
	var req createRecordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id, err := s.opts.Store.Insert(r.Context(), store.Record{Name: req.Name, Description: req.Description})
	switch {
	case errors.Is(err, store.ErrInvalidRecord):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, createRecordResponse{ID: id})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
