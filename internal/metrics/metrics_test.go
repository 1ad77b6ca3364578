package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/lodtiler/pkg/decimate"
)

func TestInstrumentLOD(t *testing.T) {
	before := testutil.ToFloat64(collapses.With(prometheus.Labels{policyLabel: "quadric"}))
	flipsBefore := testutil.ToFloat64(rejections.With(prometheus.Labels{reasonLabel: "normal_flip"}))

	var res decimate.Result
	res.Collapses = 7
	res.Triangles = 40
	res.Rejections[decimate.RejectNormalFlip] = 3
	InstrumentLOD("1", decimate.PolicyQuadric, res)

	require.Equal(t, before+7, testutil.ToFloat64(collapses.With(prometheus.Labels{policyLabel: "quadric"})))
	require.Equal(t, flipsBefore+3, testutil.ToFloat64(rejections.With(prometheus.Labels{reasonLabel: "normal_flip"})))
}

func TestInstrumentTile(t *testing.T) {
	ok := testutil.ToFloat64(tiles.With(prometheus.Labels{statusLabel: StatusOK}))
	failed := testutil.ToFloat64(tiles.With(prometheus.Labels{statusLabel: StatusFailed}))

	InstrumentTile(nil, time.Now())
	InstrumentTile(errors.New("boom"), time.Now())
	InstrumentTile(nil, time.Now())

	require.Equal(t, ok+2, testutil.ToFloat64(tiles.With(prometheus.Labels{statusLabel: StatusOK})))
	require.Equal(t, failed+1, testutil.ToFloat64(tiles.With(prometheus.Labels{statusLabel: StatusFailed})))
}

func TestInstrumentOctree(t *testing.T) {
	builds := testutil.ToFloat64(octreeBuilds)
	InstrumentOctree(12)
	require.Equal(t, builds+1, testutil.ToFloat64(octreeBuilds))
	require.Equal(t, 12.0, testutil.ToFloat64(octreeLeaves))

	bad := testutil.ToFloat64(nonManifold)
	InstrumentNonManifold()
	require.Equal(t, bad+1, testutil.ToFloat64(nonManifold))
}

func TestHandler(t *testing.T) {
	InstrumentOctree(3)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "lodtiler_octree_builds_total")
}

func TestServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), "lodtiler_tiles_total") || resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
