package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(prometheusMiddleware)
	r.Get("/companies/{id}/billing/usage", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues("GET", "/companies/{id}/billing/usage", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", "/companies/"+id+"/billing/usage", nil))
		assert.Equal(t, http.StatusTeapot, rr.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter), "IDs diferentes caem na mesma série")
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}
