// Command producer publishes a synthetic video stream over a
// WebTransport Face, exercising the Segmenter/Publisher pipeline end to
// end for demos and the scenario harness.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ndnrtc/internal/config"
	"ndnrtc/internal/frame"
	"ndnrtc/internal/httpapi"
	"ndnrtc/internal/ingest"
	"ndnrtc/internal/logger"
	"ndnrtc/internal/names"
	"ndnrtc/internal/ndnface"
	"ndnrtc/internal/pit"
	"ndnrtc/internal/publish"
	"ndnrtc/internal/runner"
	"ndnrtc/internal/stats"
)

func main() {
	cfg := config.Load()

	stream := flag.String("stream", cfg.StreamName, "stream name, e.g. /ndn/edu/ucla/remap/ndnrtc/stream")
	thread := flag.String("thread", cfg.Thread, "thread name within the stream")
	addr := flag.String("addr", ":4433", "WebTransport listen address")
	hostname := flag.String("hostname", "localhost", "hostname for the self-signed TLS certificate")
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "observability HTTP listen address")
	sliceSize := flag.Int("slice-size", cfg.SliceSize, "bytes per data segment")
	parityShards := flag.Int("parity-shards", cfg.ParityShards, "Reed-Solomon parity segments per frame")
	fps := flag.Float64("fps", 30, "synthetic frame rate")
	gop := flag.Int("gop", 30, "frames between synthetic key frames")
	logLevel := flag.String("log.level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.Parse()

	os.Setenv("NDNRTC_LOG_LEVEL", *logLevel)
	logger.Init()
	log := logger.L()

	streamName := parseName(*stream)

	st := stats.New()
	pitTable := pit.New()
	pub := publish.New(publish.Config{SliceSize: *sliceSize, ParityShards: *parityShards}, pitTable)

	// One Ingest serves both the synthetic generator (warming the cache
	// immediately) and the Face's interest handler (once a consumer
	// session connects) — they must share the same segment cache.
	ing := ingest.New(ingest.Config{Stream: streamName, Thread: *thread}, pub, pitTable, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	group, gctx := runner.New(ctx)

	group.Go("accept", func() error {
		face, err := ndnface.ListenWebTransportFace(gctx, *addr, *hostname)
		if err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		defer face.Close()
		ing.SetSigner(face)

		log.Info("consumer session accepted", "addr", *addr, "stream", streamName.String())
		if err := face.Serve(gctx, streamName, ing.Handler); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	group.Go("http", func() error {
		return httpapi.New("producer", st).Run(gctx, *httpAddr)
	})

	group.Go("generator", func() error {
		return runGenerator(gctx, ing, *fps, *gop, log)
	})

	if err := group.Wait(); err != nil {
		log.Error("producer exited", "err", err)
		os.Exit(1)
	}
}

// runGenerator feeds synthetic encoded frames into ing at a fixed rate,
// standing in for a real video encoder, which is out of scope here.
func runGenerator(ctx context.Context, ing *ingest.Ingest, fps float64, gop int, log *slog.Logger) error {
	if fps <= 0 {
		fps = 30
	}
	interval := time.Duration(float64(time.Second) / fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n int
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			isKey := gop > 0 && n%gop == 0
			img := syntheticImage(n, isKey)
			info := frame.FrameInfo{
				TimestampUs: uint64(now.UnixMicro()),
				IsKey:       isKey,
			}
			if err := ing.IncomingFrame(info, img); err != nil {
				log.Warn("incoming frame", "err", err)
			}
			n++
		}
	}
}

func syntheticImage(n int, isKey bool) frame.EncodedImage {
	size := 4000
	if isKey {
		size = 20000
	}
	b := make([]byte, size)
	rnd := rand.New(rand.NewSource(int64(n)))
	rnd.Read(b)
	return frame.EncodedImage{Width: 640, Height: 480, Bytes: b}
}

func parseName(s string) names.Name {
	s = strings.Trim(s, "/")
	if s == "" {
		return names.Name{}
	}
	return names.Name(strings.Split(s, "/"))
}
