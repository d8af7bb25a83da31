package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/rrteleop/pkg/device"
	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

type fakeSource struct {
	snap teleop.Snapshot
	ok   bool
}

func (f *fakeSource) Snapshot() (teleop.Snapshot, bool) { return f.snap, f.ok }
func (f *fakeSource) Stats() teleop.Stats               { return teleop.Stats{Ticks: f.snap.Tick} }

func get(t *testing.T, s *Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	resp, body := get(t, New(&fakeSource{}, nil, 0, nil), "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestState_Unavailable(t *testing.T) {
	resp, body := get(t, New(&fakeSource{}, nil, 0, nil), "/api/state")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "no state")
}

func TestState(t *testing.T) {
	src := &fakeSource{ok: true, snap: teleop.Snapshot{
		Tick:     42,
		Position: []float64{0, 1.5},
		Pose:     kinematics.Pose{X: 1, Y: 1},
	}}
	s := New(src, nil, 0, nil)

	resp, body := get(t, s, "/api/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got teleop.Snapshot
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, uint64(42), got.Tick)
	assert.Equal(t, []float64{0, 1.5}, got.Position)

	resp, body = get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats teleop.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, uint64(42), stats.Ticks)
}

func TestWebsocketRoutesRequireUpgrade(t *testing.T) {
	s := New(&fakeSource{}, device.NewTwist(), 0, nil)
	resp, _ := get(t, s, "/ws/state")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	resp, _ = get(t, s, "/ws/control")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestControlRouteNeedsTwist(t *testing.T) {
	resp, _ := get(t, New(&fakeSource{}, nil, 0, nil), "/api/control")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplyControl(t *testing.T) {
	twist := device.NewTwist()
	s := New(&fakeSource{}, twist, 0, nil)

	require.NoError(t, s.applyControl(websocket.TextMessage,
		[]byte(`{"linear":{"x":0.2,"y":-0.1,"z":0},"angular":{"x":0,"y":0,"z":0.5}}`)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := twist.LinearVelocity(ctx)
	require.NoError(t, err)
	assert.Equal(t, kinematics.Vec3{X: 0.2, Y: -0.1}, v)

	assert.ErrorIs(t, s.applyControl(websocket.BinaryMessage, []byte("{}")), ErrNotText)
	assert.Error(t, s.applyControl(websocket.TextMessage, []byte("not json")))
}
