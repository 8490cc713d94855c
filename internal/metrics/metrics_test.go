// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/microdata/internal/metrics"
)

func TestMiddleware(t *testing.T) {
	assert := require.New(t)
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	})

	for _, p := range []string{"/items/1", "/items/2", "/"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.InDelta(2, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/items/{id}", "404")), 0)
	assert.InDelta(1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/", "200")), 0)
}

func TestExtraction(t *testing.T) {
	assert := require.New(t)
	m := metrics.New()

	m.Extraction(metrics.ResultCreated, 3)
	m.Extraction(metrics.ResultCached, 3)
	m.Extraction(metrics.ResultError, 0)

	assert.InDelta(1, testutil.ToFloat64(m.Extractions.WithLabelValues(metrics.ResultCreated)), 0)
	assert.InDelta(1, testutil.ToFloat64(m.Extractions.WithLabelValues(metrics.ResultError)), 0)
	assert.Equal(1, testutil.CollectAndCount(m.ExtractedItems))

	var nilMetrics *metrics.Metrics
	assert.NotPanics(func() { nilMetrics.Extraction(metrics.ResultCreated, 1) })
}

func TestHandler(t *testing.T) {
	assert := require.New(t)
	m := metrics.New()
	m.Extraction(metrics.ResultCreated, 1)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(http.StatusOK, w.Code)
	assert.Contains(w.Body.String(), `microdata_extractions_total{result="created"} 1`)
}
