// Command guistream-demo opens a window with a canvas of UI panels and draws
// them every frame through the persistently mapped streaming renderer.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/irfansharif/guistream"
	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu/opengl"
	"github.com/irfansharif/guistream/internal/app"
)

var (
	vertexCapacity = flag.Int("vertices", 0, "vertex capacity per slot, 0 to measure a dry run")
	indexCapacity  = flag.Int("indices", 0, "index capacity per slot, 0 to measure a dry run")
	panels         = flag.Int("panels", 6, "number of panels to start with")
	metricsAddr    = flag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
)

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
}

// newLogger returns a development logger when GUISTREAM_DEBUG_RUNTIME=1 and a
// production one otherwise.
func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("GUISTREAM_DEBUG_RUNTIME") == "1" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func makeTitle(fps float64, avgFrameTime float64, panels int, s guistream.FrameStats) string {
	return fmt.Sprintf("guistream (%.1f FPS, %.2fms/frame, %d panels, %d triangles, %d draw calls/frame, %.3fms/draw, %dns sync)",
		fps,
		avgFrameTime,
		panels,
		s.IndexCount/3,
		s.DrawCalls,
		s.MeanDrawTimeMs,
		s.SyncWaitNs,
	)
}

func main() {
	flag.Parse()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	guistream.SetLogger(logger)

	if err := run(logger); err != nil {
		logger.Fatal("guistream-demo failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initializing GLFW: %w", err)
	}
	defer glfw.Terminate()

	// Persistent mapping needs buffer storage, core in 4.4; ask for 4.5 for
	// direct state access.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)

	window, err := glfw.CreateWindow(
		1280, // width
		960,  // height
		"guistream",
		nil, nil,
	)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	dev, err := opengl.New(logger.Named("opengl"))
	if err != nil {
		return err
	}

	timeout, err := syncTimeout()
	if err != nil {
		return err
	}
	renderer := guistream.New(dev, guistream.WithSyncTimeout(timeout))
	defer renderer.Shutdown()

	if *metricsAddr != "" {
		serveMetrics(logger, renderer)
	}

	ui := drawlist.NewContext()
	w, h := window.GetSize()
	s := seed(logger)
	application := app.NewApp(renderer, ui, app.NewView(w, h), s, logger.Named("app"))
	for i := 0; i < *panels; i++ {
		col, row := i%3, i/3
		application.CreatePanel(float64(w)/4*float64(col+1), float64(h)/3*float64(row+1), nil /* items */)
	}

	vertices, indices := *vertexCapacity, *indexCapacity
	if vertices <= 0 || indices <= 0 {
		mv, mi, err := application.MeasureCapacity(frameParams(window))
		if err != nil {
			return fmt.Errorf("measuring capacity: %w", err)
		}
		// Headroom for panels added at runtime.
		vertices, indices = max(vertices, 4*mv), max(indices, 4*mi)
	}
	if err := renderer.Initialize(ui, vertices, indices); err != nil {
		var aerr *guistream.ResourceAllocationError
		if errors.As(err, &aerr) && aerr.Log != "" {
			logger.Error("device log", zap.String("resource", aerr.Resource), zap.String("log", aerr.Log))
		}
		return err
	}

	eventHandlers := NewEventHandlers(application, window)

	frameCount, frameTimeSum := 0, 0.0
	lastFPSUpdate := time.Now()

	// Main loop.
	for !window.ShouldClose() {
		frameStart := time.Now()

		eventHandlers.tick(frameStart)

		fw, fh := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(fw), int32(fh))
		gl.ClearColor(0.9, 0.9, 0.9, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		if _, err := application.Frame(frameParams(window)); err != nil {
			return err
		}
		window.SwapBuffers()
		glfw.PollEvents()

		frameTime := time.Since(frameStart).Seconds() * 1000.0 // ms
		frameTimeSum += frameTime

		frameCount++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			avgFrameTime := frameTimeSum / float64(frameCount)
			frameCount, frameTimeSum = 0, 0.0
			lastFPSUpdate = now

			stats := renderer.Stats()
			window.SetTitle(makeTitle(fps, avgFrameTime, application.Panels.Len(), stats))
			logger.Debug("performance statistics",
				zap.Float64("fps", fps),
				zap.Float64("frame_ms", avgFrameTime),
				zap.Float64("draw_ms", stats.DrawTimeMs),
				zap.Float64("mean_draw_ms", stats.MeanDrawTimeMs),
				zap.Int("vertices", stats.VertexCount),
				zap.Int("indices", stats.IndexCount),
				zap.Int("draw_calls", stats.DrawCalls),
				zap.Int("culled", stats.CulledBatches),
				zap.Int64("sync_wait_ns", stats.SyncWaitNs),
				zap.Uint64("sync_timeouts", stats.SyncTimeouts),
				zap.Uint64("overflows", stats.Overflows),
			)
		}
	}
	return nil
}

// frameParams returns the display size in window coordinates and the ratio of
// framebuffer pixels to them.
func frameParams(window *glfw.Window) drawlist.FrameParams {
	w, h := window.GetSize()
	fw, fh := window.GetFramebufferSize()
	params := drawlist.FrameParams{
		DisplaySize:      drawlist.Vec2{X: float32(w), Y: float32(h)},
		FramebufferScale: drawlist.Vec2{X: 1, Y: 1},
	}
	if w > 0 && h > 0 {
		params.FramebufferScale = drawlist.Vec2{X: float32(fw) / float32(w), Y: float32(fh) / float32(h)}
	}
	return params
}

func serveMetrics(logger *zap.Logger, renderer *guistream.Renderer) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(guistream.NewCollector("guistream", renderer.Tracker()))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("serving metrics", zap.String("addr", *metricsAddr))
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

func seed(logger *zap.Logger) int64 {
	seedStr := os.Getenv("GUISTREAM_SEED")
	now := time.Now().Unix()
	if seedStr == "" {
		return now
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		logger.Fatal("invalid GUISTREAM_SEED", zap.String("value", seedStr), zap.Error(err))
	}
	return seed
}

// syncTimeout reads GUISTREAM_SYNC_TIMEOUT as a duration, e.g. "2ms".
func syncTimeout() (time.Duration, error) {
	s := os.Getenv("GUISTREAM_SYNC_TIMEOUT")
	if s == "" {
		return guistream.DefaultSyncTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid GUISTREAM_SYNC_TIMEOUT %q: %w", s, err)
	}
	return d, nil
}
