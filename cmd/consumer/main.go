// Command consumer joins a stream over a WebTransport Face and plays it
// out through a no-op logging decoder, exercising Buffer, PlaybackQueue,
// Playout, JitterTiming, and two Default Pipeliners (one per K/D
// namespace) end to end.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"ndnrtc/internal/buffer"
	"ndnrtc/internal/config"
	"ndnrtc/internal/fec"
	"ndnrtc/internal/frame"
	"ndnrtc/internal/httpapi"
	"ndnrtc/internal/jitter"
	"ndnrtc/internal/logger"
	"ndnrtc/internal/names"
	"ndnrtc/internal/ndnface"
	"ndnrtc/internal/pipeliner"
	"ndnrtc/internal/playback"
	"ndnrtc/internal/playout"
	"ndnrtc/internal/pool"
	"ndnrtc/internal/rebuffer"
	"ndnrtc/internal/runner"
	"ndnrtc/internal/stats"
)

func main() {
	cfg := config.Load()

	stream := flag.String("stream", cfg.StreamName, "stream name to join")
	thread := flag.String("thread", cfg.Thread, "thread name within the stream")
	addr := flag.String("addr", cfg.FaceAddr, "WebTransport dial address")
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "observability HTTP listen address")
	depth := flag.Int("depth", cfg.PipelineDepth, "initial pipeline depth per namespace")
	poolCapacity := flag.Int("pool-capacity", cfg.PoolCapacity, "slot pool capacity")
	parityShards := flag.Int("parity-shards", cfg.ParityShards, "Reed-Solomon parity segments per frame")
	logLevel := flag.String("log.level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.Parse()

	os.Setenv("NDNRTC_LOG_LEVEL", *logLevel)
	logger.Init()
	log := logger.L()

	streamName := parseName(*stream)
	streamDepth := len(streamName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	face, err := ndnface.DialWebTransportFace(ctx, *addr)
	if err != nil {
		log.Error("dial", "err", err)
		os.Exit(1)
	}
	defer face.Close()
	log.Info("consumer connected", "addr", *addr, "stream", streamName.String())

	st := stats.New()
	p := pool.New(*poolCapacity, streamDepth)
	buf := buffer.New(p, streamDepth)
	queue := playback.New(p)
	assembler := fec.New(fec.Params{ParityShards: *parityShards})
	timing := jitter.New()

	downstream := frame.LoggingConsumer{Logger: log}
	adapter := &frame.Adapter{Stream: streamName, Downstream: downstream, Logger: log}
	strategy := playout.NewVideoStrategy()

	newPlayout := func() *playout.Playout {
		return playout.New(queue, p, timing, assembler, strategy, adapter, st)
	}
	current := newPlayout()
	current.Start(0)

	keyPipeliner := pipeliner.NewDefault(pipeliner.Config{
		Stream: streamName, Thread: *thread, Namespace: names.Key,
		InitialDepth: maxInt(1, *depth/4), RateLimit: rate.Limit(100), Burst: *depth,
		ParityShards: *parityShards,
	}, buf, queue, face, st)
	deltaPipeliner := pipeliner.NewDefault(pipeliner.Config{
		Stream: streamName, Thread: *thread, Namespace: names.Delta,
		InitialDepth: *depth, RateLimit: rate.Limit(100), Burst: *depth,
		ParityShards: *parityShards,
	}, buf, queue, face, st)

	excluder := multiExcluder{keyPipeliner, deltaPipeliner}
	playheadFunc := func() uint64 { return deltaPipeliner.Playhead() }

	rebufCfg := rebuffer.Config{
		MaxUnderrunNum: cfg.MaxUnderrunNum,
		EmptyThreshold: time.Duration(cfg.EmptyThreshold) * time.Millisecond,
		PollInterval:   time.Duration(cfg.PollInterval) * time.Millisecond,
	}
	ctrl := rebuffer.New(buf, queue, current, newPlayout, excluder, playheadFunc, rebufCfg)
	adapter.OnQueueEmpty = ctrl.RecordUnderrun

	group, gctx := runner.New(ctx)
	group.Go("http", func() error {
		return httpapi.New("consumer", st).Run(gctx, *httpAddr)
	})
	group.Go("key-pipeliner", func() error {
		return keyPipeliner.Run(gctx)
	})
	group.Go("delta-pipeliner", func() error {
		return deltaPipeliner.Run(gctx)
	})
	group.Go("rebuffer", func() error {
		done := make(chan struct{})
		go func() {
			<-gctx.Done()
			close(done)
		}()
		ctrl.Run(done)
		return nil
	})

	err = group.Wait()
	ctrl.Current().Stop()
	if err != nil {
		log.Error("consumer exited", "err", err)
		os.Exit(1)
	}
}

// multiExcluder fans ExcludeBelow out to every namespace's Pipeliner,
// since the rebuffer controller only knows of one excludeFilter floor
// but this demo runs one Pipeliner per K/D namespace.
type multiExcluder []interface{ ExcludeBelow(seq uint64) }

func (m multiExcluder) ExcludeBelow(seq uint64) {
	for _, p := range m {
		p.ExcludeBelow(seq)
	}
}

func parseName(s string) names.Name {
	s = strings.Trim(s, "/")
	if s == "" {
		return names.Name{}
	}
	return names.Name(strings.Split(s, "/"))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
