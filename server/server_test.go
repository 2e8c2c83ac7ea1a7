package server

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-detrack/timing"
)

func newTestServer(t *testing.T) (*Server, *timing.AggregatedTimes) {
	times := timing.NewAggregatedTimes()
	return New(times, logs.NewTestingLog(t)), times
}

func TestStats(t *testing.T) {

	s, times := newTestServer(t)

	times.Push(timing.Uniform(40 * time.Millisecond))
	times.Push(timing.Uniform(2 * time.Millisecond))
	times.Push(timing.Uniform(4 * time.Millisecond))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

	assert.Equal(t, 3, stats.Frames)
	// first frame is ignored by default
	assert.Equal(t, 3*time.Millisecond, stats.Average.ForwardPass)
	assert.Equal(t, 2*time.Millisecond, stats.Min.NMS)
	assert.Equal(t, 4*time.Millisecond, stats.Max.NMS)
	assert.Contains(t, stats.P95, "forward_pass")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/stats?all=1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 40*time.Millisecond, stats.Max.NMS)
}

func TestChart(t *testing.T) {

	s, times := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/stats/chart", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	times.Push(timing.Uniform(time.Millisecond))
	times.Push(timing.Uniform(2 * time.Millisecond))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/stats/chart", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "forward_pass")
}

func TestMethodNotAllowed(t *testing.T) {

	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStream(t *testing.T) {

	s, _ := newTestServer(t)

	// no clients so nothing is encoded
	require.NoError(t, s.Publish(image.NewRGBA(image.Rect(0, 0, 8, 8))))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// keep publishing until the client has subscribed and read a frame
	go func() {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for ctx.Err() == nil {
			_ = s.Publish(img)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame", strings.TrimSpace(line))

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg", strings.TrimSpace(line))

	assert.Equal(t, 1, s.Clients())
}
