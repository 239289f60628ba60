package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	BindAddr    string
	EncodedPath string
	LoopReplay  bool
	BatchSize   int
	Logger      *zap.Logger
	Metrics     *Metrics
}

// Server accepts TCP connections and streams the pre-encoded frame file at
// maximum speed to each one, grounded on
// original_source/src/bin/stream_tcp.rs's accept loop and handle_client: a
// goroutine per connection stands in for the reference's per-connection
// tokio task, since both map a blocking accept/read/write loop onto an
// OS-scheduled unit of concurrency.
type Server struct {
	cfg      ServerConfig
	listener net.Listener
	clientID atomic.Uint64
}

// NewServer builds a Server that has not yet started listening.
func NewServer(cfg ServerConfig) *Server {
	return &Server{cfg: cfg}
}

// Serve binds cfg.BindAddr and accepts connections until ctx is cancelled
// or Close is called, spawning one goroutine per connection.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("replay: listen on %s: %w", s.cfg.BindAddr, err)
	}
	s.listener = ln
	s.cfg.Logger.Info("tcp-replay-listening", zap.String("addr", s.cfg.BindAddr))

	return s.serveOn(ctx, ln)
}

// serveOn runs the accept loop against an already-bound listener, letting
// tests supply one on an ephemeral port without going through Serve.
func (s *Server) serveOn(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.cfg.Logger.Error("tcp-replay-accept-error", zap.Error(err))
			continue
		}
		id := s.clientID.Add(1) - 1
		go s.handleClient(ctx, id, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

type clientStats struct {
	batches uint64
	msgs    uint64
	bytes   uint64
}

// handleClient streams cfg.EncodedPath to conn frame by frame, looping the
// file from the start if cfg.LoopReplay is set, until the client
// disconnects, a read/write error occurs, or ctx is cancelled. It reports
// throughput once a second, mirroring the reference's handle_client.
func (s *Server) handleClient(ctx context.Context, id uint64, conn net.Conn) {
	addr := conn.RemoteAddr().String()
	logger := s.cfg.Logger.With(zap.Uint64("client_id", id), zap.String("addr", addr))
	logger.Info("tcp-replay-client-connected")
	defer conn.Close()

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	start := time.Now()
	lastReport := start
	var stats clientStats

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ClientsConnected.Inc()
		defer s.cfg.Metrics.ClientsConnected.Dec()
	}

replay:
	for {
		if ctx.Err() != nil {
			break
		}

		var disconnected bool
		func() {
			f, err := os.Open(s.cfg.EncodedPath)
			if err != nil {
				logger.Error("tcp-replay-open-failed", zap.String("path", s.cfg.EncodedPath), zap.Error(err))
				disconnected = true
				return
			}
			defer f.Close()

			for {
				if ctx.Err() != nil {
					return
				}

				payload, err := ReadFrame(f)
				if errors.Is(err, io.EOF) {
					return
				}
				if err != nil {
					logger.Error("tcp-replay-read-frame-failed", zap.Error(err))
					return
				}

				if err := WriteFrame(conn, payload); err != nil {
					logger.Info("tcp-replay-client-disconnected",
						zap.Uint64("batches", stats.batches), zap.Uint64("msgs", stats.msgs), zap.Error(err))
					disconnected = true
					return
				}

				stats.batches++
				stats.msgs += uint64(s.cfg.BatchSize)
				stats.bytes += uint64(len(payload) + 4)
				if s.cfg.Metrics != nil {
					s.cfg.Metrics.BytesSent.Add(float64(len(payload) + 4))
					s.cfg.Metrics.BatchesSent.Inc()
				}

				if time.Since(lastReport) >= time.Second {
					stats.report(logger, start)
					lastReport = time.Now()
				}
			}
		}()

		if disconnected || ctx.Err() != nil {
			break replay
		}
		if !s.cfg.LoopReplay {
			logger.Info("tcp-replay-client-finished",
				zap.Uint64("batches", stats.batches), zap.Uint64("msgs", stats.msgs))
			break replay
		}
		logger.Info("tcp-replay-client-looping")
	}

	stats.flushFinal(logger, s.cfg.Metrics, start)
}

func (c *clientStats) report(logger *zap.Logger, start time.Time) {
	elapsed := time.Since(start).Seconds()
	msgRate, batchRate, throughputMBps := c.rates(elapsed)
	logger.Info("tcp-replay-progress",
		zap.Uint64("msgs", c.msgs), zap.Uint64("batches", c.batches),
		zap.Float64("msg_rate_per_sec", msgRate), zap.Float64("batch_rate_per_sec", batchRate),
		zap.Float64("throughput_mb_per_sec", throughputMBps))
}

func (c *clientStats) flushFinal(logger *zap.Logger, metrics *Metrics, start time.Time) {
	elapsed := time.Since(start).Seconds()
	msgRate, _, throughputMBps := c.rates(elapsed)
	logger.Info("tcp-replay-client-stats",
		zap.Uint64("msgs", c.msgs), zap.Uint64("batches", c.batches), zap.Uint64("bytes", c.bytes),
		zap.Float64("duration_sec", elapsed), zap.Float64("msg_rate_per_sec", msgRate),
		zap.Float64("throughput_mb_per_sec", throughputMBps))
	if metrics != nil {
		metrics.ClientSessionsTotal.Inc()
	}
}

func (c *clientStats) rates(elapsed float64) (msgRate, batchRate, throughputMBps float64) {
	if elapsed <= 0 {
		return 0, 0, 0
	}
	return float64(c.msgs) / elapsed,
		float64(c.batches) / elapsed,
		(float64(c.bytes) / elapsed) / (1024 * 1024)
}
