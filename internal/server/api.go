// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"codeberg.org/readeck/microdata/internal/extractions"
	"codeberg.org/readeck/microdata/pkg/extract"
)

type extractForm struct {
	URL string `json:"url"`
}

// extractRoutes returns the routes running extractions.
//
//	GET  /?url=         extracts a remote page
//	POST / {"url": ""}  extracts a remote page
//	POST /?base=        extracts the HTML request body
func (s *Server) extractRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		s.extractURL(w, r, r.URL.Query().Get("url"))
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

		switch mt {
		case "application/json":
			var f extractForm
			if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
				TextMsg(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
				return
			}
			s.extractURL(w, r, f.URL)
		case "text/html", "application/xhtml+xml":
			s.extractBody(w, r)
		default:
			TextMsg(w, r, http.StatusUnsupportedMediaType, "unsupported content type")
		}
	})

	return r
}

func (s *Server) extractURL(w http.ResponseWriter, r *http.Request, src string) {
	if src == "" {
		TextMsg(w, r, http.StatusBadRequest, "url is required")
		return
	}

	e, cached, err := s.extractions.Extract(r.Context(), src)
	if err != nil {
		Err(w, r, err)
		return
	}

	status := http.StatusCreated
	if cached {
		status = http.StatusOK
	}
	w.Header().Set("Location", s.extractionURL(e))
	Render(w, r, status, e)
}

func (s *Server) extractBody(w http.ResponseWriter, r *http.Request) {
	page, err := extract.Read(r.Body, r.URL.Query().Get("base"), r.URL.Query().Get("encoding"))
	if err != nil {
		Err(w, r, err)
		return
	}

	doc, err := page.Document()
	if err != nil {
		Err(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "jsonld" {
		w.Header().Set("Content-Type", "application/ld+json; charset=utf-8")
		Render(w, r, http.StatusOK, doc.Raw())
		return
	}
	Render(w, r, http.StatusOK, doc)
}

// extractionRoutes returns the routes reading the stored extractions.
func (s *Server) extractionRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := extractions.ListOptions{URL: q.Get("url")}

		var err error
		if opts.Limit, err = uintParam(q.Get("limit")); err != nil {
			TextMsg(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		if opts.Offset, err = uintParam(q.Get("offset")); err != nil {
			TextMsg(w, r, http.StatusBadRequest, "invalid offset")
			return
		}

		list, err := s.extractions.List(r.Context(), opts)
		if err != nil {
			Err(w, r, err)
			return
		}
		Render(w, r, http.StatusOK, list)
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			Err(w, r, extractions.ErrNotFound)
			return
		}

		e, err := s.extractions.Get(r.Context(), id)
		if err != nil {
			Err(w, r, err)
			return
		}
		Render(w, r, http.StatusOK, e)
	})

	return r
}

func (s *Server) extractionURL(e *extractions.Extraction) string {
	return s.prefixed("/api/extractions/" + e.ID.String())
}

func (s *Server) prefixed(p string) string {
	if s.prefix == "/" {
		return p
	}
	return s.prefix + p
}

func uintParam(v string) (uint, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	return uint(n), err
}
