// Package metrics exposes Prometheus instruments for tiling runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Faultbox/lodtiler/pkg/decimate"
)

const (
	statusLabel = "status"
	reasonLabel = "reason"
	policyLabel = "policy"
	lodLabel    = "lod"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	octreeBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lodtiler_octree_builds_total",
		Help: "The number of octrees built.",
	})

	octreeLeaves = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lodtiler_octree_leaves",
		Help: "Non-empty leaves in the most recent octree.",
	})

	tiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodtiler_tiles_total",
		Help: "The number of tiles processed.",
	}, []string{
		statusLabel,
	})

	collapses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodtiler_collapses_total",
		Help: "The number of edge collapses performed.",
	}, []string{
		policyLabel,
	})

	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodtiler_rejections_total",
		Help: "Collapse candidates skipped, by reason.",
	}, []string{
		reasonLabel,
	})

	nonManifold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lodtiler_non_manifold_total",
		Help: "Tiles whose surface could not be built as a manifold.",
	})

	lodTriangles = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lodtiler_lod_triangles",
		Help:    "Triangles per tile for each level of detail.",
		Buckets: prometheus.ExponentialBuckets(16, 4, 8),
	}, []string{
		lodLabel,
	})

	tileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "lodtiler_tile_build_seconds",
		Help: "The time to build every level of one tile.",
	})
)

// InstrumentOctree records a finished octree build.
func InstrumentOctree(nonEmptyLeaves int) {
	octreeBuilds.Inc()
	octreeLeaves.Set(float64(nonEmptyLeaves))
}

// InstrumentTile records a finished tile and its build time.
func InstrumentTile(err error, start time.Time) {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	tiles.With(prometheus.Labels{statusLabel: status}).Inc()
	tileLatency.Observe(time.Since(start).Seconds())
}

// InstrumentNonManifold counts a tile rejected by the half-edge builder.
func InstrumentNonManifold() {
	nonManifold.Inc()
}

// InstrumentLOD records one decimation pass.
func InstrumentLOD(lod string, policy decimate.Policy, res decimate.Result) {
	collapses.With(prometheus.Labels{policyLabel: string(policy)}).Add(float64(res.Collapses))
	for i, n := range res.Rejections {
		if n == 0 || decimate.Rejection(i) == decimate.Accepted {
			continue
		}
		rejections.With(prometheus.Labels{reasonLabel: decimate.Rejection(i).String()}).Add(float64(n))
	}
	lodTriangles.With(prometheus.Labels{lodLabel: lod}).Observe(float64(res.Triangles))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	var mux http.ServeMux
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: &mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
