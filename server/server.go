// Package server streams annotated frames and pipeline timing statistics
// over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"

	"github.com/swdee/go-detrack/timing"
)

// Server publishes annotated frames as an MJPEG stream along with the
// aggregated stage times of the pipeline
type Server struct {
	log    logs.Log
	times  *timing.AggregatedTimes
	router *mux.Router
	// Quality of the JPEG encoded stream frames
	Quality int

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	frames  uint64
}

// New returns a Server reporting times
func New(times *timing.AggregatedTimes, log logs.Log) *Server {

	s := &Server{
		log:     log,
		times:   times,
		router:  mux.NewRouter(),
		Quality: 80,
		clients: make(map[chan []byte]struct{}),
	}

	s.router.HandleFunc("/stream", s.handleStream).Methods("GET")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/stats/chart", s.handleChart).Methods("GET")

	return s
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {

	srv := &http.Server{
		Handler:     s.router,
		Addr:        addr,
		ReadTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutCtx); err != nil {
			s.log.Warnf("Error shutting down server: %v", err)
		}
	}()

	s.log.Infof("Starting server on %s", addr)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving http: %w", err)
	}

	return nil
}

// Clients returns the number of connected stream clients
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish sends a frame to all stream clients.  The frame is only encoded
// when there are clients, and clients still sending the previous frame skip
// this one.
func (s *Server) Publish(img image.Image) error {

	if s.Clients() == 0 {
		return nil
	}

	var buf bytes.Buffer

	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.Quality)); err != nil {
		return fmt.Errorf("error encoding stream frame: %w", err)
	}

	jpg := buf.Bytes()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++

	for client := range s.clients {
		select {
		case client <- jpg:
		default:
			// client is too slow
		}
	}

	return nil
}

func (s *Server) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

// handleStream is the HTTP handler function used to stream video frames to
// the browser
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {

	s.log.Infof("New stream client %s", r.RemoteAddr)

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			s.log.Infof("Stream client %s disconnected", r.RemoteAddr)
			return

		case jpg := <-ch:
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpg)); err != nil {
				return
			}

			if _, err := w.Write(jpg); err != nil {
				return
			}

			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Stats is the JSON body of the stats route
type Stats struct {
	Frames  int                `json:"frames"`
	Average timing.FrameTimes  `json:"average"`
	Min     timing.FrameTimes  `json:"min"`
	Max     timing.FrameTimes  `json:"max"`
	P95     map[string]float64 `json:"p95_ms"`
	TotalMs float64            `json:"total_ms"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {

	ignoreFirst := r.URL.Query().Get("all") == ""

	avg := s.times.Average(ignoreFirst)

	stats := Stats{
		Frames:  s.times.Len(),
		Average: avg,
		Min:     s.times.Min(ignoreFirst),
		Max:     s.times.Max(ignoreFirst),
		P95:     make(map[string]float64),
		TotalMs: timing.Millis(avg.Total()),
	}

	for _, stage := range timing.Stages() {
		stats.P95[stage.String()] = timing.Millis(s.times.Percentile(stage, 0.95, ignoreFirst))
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.log.Warnf("Error writing stats: %v", err)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {

	var buf bytes.Buffer

	err := s.times.WriteHTML(&buf, r.URL.Query().Get("all") == "")

	if errors.Is(err, timing.ErrNoSamples) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if err != nil {
		s.log.Errorf("Error rendering chart: %v", err)
		http.Error(w, "error rendering chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
