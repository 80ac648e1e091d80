package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcsim/wavesim/pkg/backend"
	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/remote"
)

// One drive pulse on Q0 at tick 0 and a readout pulse on Q1 at tick 4,
// both 8 ns long at one sample per tick.
const testBundle = `{
  "targets": [
    {"qubit": 0, "role": "qdrv", "ops": [
      {"op": "pulse", "start_time": 0, "dest": "Q0.qdrv", "amp": 1073741824,
       "env": {"env_func": "square", "paradict": {"twidth": 8e-9}}}
    ]},
    {"qubit": 1, "role": "rdrv", "ops": [
      {"op": "pulse", "start_time": 4, "dest": "Q1.rdrv", "amp": 2147483648,
       "env": {"env_func": "square", "paradict": {"twidth": 8e-9}}}
    ]}
  ],
  "assembled": {"cores": {"Q0": {"cmd_buf": "AAEC"}}}
}`

func testConfig() Config {
	return Config{
		Hardware: hwconfig.Timing{ClockPeriod: 1e-9, SamplesPerTick: 1, DACSampleRate: 1e9},
		Server:   ServerConfig{FFTSize: 8, ReadoutMargin: 2},
	}.WithDefaults()
}

func simulate(t *testing.T, url, query string) map[string]interface{} {
	t.Helper()
	resp, err := http.Post(url+"/api/simulate"+query, "application/json", strings.NewReader(testBundle))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSimulateLocalAndFetchResult(t *testing.T) {
	ts := httptest.NewServer(NewServer(testConfig()).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/result")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := simulate(t, ts.URL, "")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "local", body["backend"])
	assert.Equal(t, 2.0, body["channels"])
	assert.Equal(t, 12.0, body["samples"])
	assert.Equal(t, 4.0, body["readout_marker"])

	resp, err = http.Get(ts.URL + "/api/result?channel=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frame resultFrame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, frame.X, "window ends at marker + margin")
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 1}, frame.Y)
	assert.Empty(t, frame.Spectrum)

	resp2, err := http.Get(ts.URL + "/api/result?channel=0&lower=2&upper=12&down_sample=3&mode=both")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var frame2 resultFrame
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&frame2))
	assert.Equal(t, []int{2, 5, 8, 11}, frame2.X)
	assert.Equal(t, []float64{0.5, 0.5, 0, 0}, frame2.Y)
	assert.Len(t, frame2.Spectrum, 4)
	assert.Equal(t, 1e9/8, frame2.SpectrumBinHz)

	resp3, err := http.Get(ts.URL + "/api/result?channel=7")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestSimulateRejectsBadInput(t *testing.T) {
	ts := httptest.NewServer(NewServer(testConfig()).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/simulate", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/simulate?duration=soon", "application/json", strings.NewReader(testBundle))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, d := range []string{"NaN", "1", "1e-3"} {
		resp, err = http.Post(ts.URL+"/api/simulate?duration="+d, "application/json", strings.NewReader(testBundle))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "duration=%s", d)
	}

	resp, err = http.Get(ts.URL + "/api/simulate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSwitchToRemoteBackend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		remote.Serve(ctx, ln, remote.HandlerFunc(func(_ context.Context, req *remote.Request) (*remote.Payload, error) {
			if req.NSamples == 0 {
				return nil, errors.New("empty run")
			}
			return &remote.Payload{DACOut: [][]float64{make([]float64, req.NSamples)}, Acc: [][]int64{}}, nil
		}))
	}()
	defer func() {
		cancel()
		<-done
	}()

	ts := httptest.NewServer(NewServer(testConfig()).Handler())
	defer ts.Close()

	req, _ := json.Marshal(map[string]string{"kind": "remote", "address": ln.Addr().String()})
	resp, err := http.Post(ts.URL+"/api/backend", "application/json", bytes.NewReader(req))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/backend")
	require.NoError(t, err)
	var bc backend.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bc))
	resp.Body.Close()
	assert.Equal(t, backend.Remote, bc.Kind)

	body := simulate(t, ts.URL, "?duration=1e-7")
	assert.Equal(t, "remote", body["backend"])
	assert.Equal(t, 100.0, body["samples"])
	assert.Equal(t, 4.0, body["readout_marker"])

	resp, err = http.Post(ts.URL+"/api/simulate?duration=0", "application/json", strings.NewReader(testBundle))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWebsocketFeed(t *testing.T) {
	srv := NewServer(testConfig())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool { return srv.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteJSON(map[string]interface{}{"mode": "raw", "channel": 0}))
	require.Eventually(t, func() bool {
		srv.state.mu.RLock()
		defer srv.state.mu.RUnlock()
		return srv.state.StreamMode == "raw"
	}, 2*time.Second, 10*time.Millisecond)

	simulate(t, ts.URL, "")

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame resultFrame
	require.NoError(t, c.ReadJSON(&frame))
	assert.Equal(t, "result", frame.Type)
	assert.Equal(t, 0, frame.Channel)
	assert.Equal(t, 4, frame.ReadoutMarker)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, frame.Y)
	assert.Empty(t, frame.Spectrum)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.Wrap(remote.ErrInvalidInputRange, "x")))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(&remote.TransportError{Timeout: true, Err: context.DeadlineExceeded}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&remote.TransportError{Err: errors.New("refused")}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&remote.RemoteSimulationError{Message: "x"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
