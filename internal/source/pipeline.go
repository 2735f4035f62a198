package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/logger"
)

const sinkName = "warpsink"

// DefaultLaunch decodes the H.264 stream of a THETA camera in live mode.
const DefaultLaunch = "thetauvcsrc mode=4K ! queue ! h264parse ! decodebin"

// ErrPipeline wraps GStreamer construction and runtime failures.
var ErrPipeline = errors.New("gstreamer pipeline error")

// PipelineConfig describes a GStreamer frame source.
type PipelineConfig struct {
	// Launch is a gst-launch description producing raw video.
	Launch string
	// Width and Height are the frame size the source is scaled to.
	Width  int
	Height int
}

// launchDescription appends RGBA conversion and the appsink to cfg.Launch.
func launchDescription(cfg PipelineConfig) (string, error) {
	launch := strings.TrimSpace(cfg.Launch)
	if launch == "" {
		return "", fmt.Errorf("%w: empty launch description", ErrPipeline)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: invalid frame size %dx%d", ErrPipeline, cfg.Width, cfg.Height)
	}
	return fmt.Sprintf(
		"%s ! videoconvert ! videoscale ! video/x-raw,format=RGBA,width=%d,height=%d ! appsink name=%s sync=false max-buffers=1 drop=true",
		launch, cfg.Width, cfg.Height, sinkName,
	), nil
}

// Pipeline pulls frames from a GStreamer appsink. Samples arrive on
// GStreamer streaming threads; only the newest one is kept.
type Pipeline struct {
	cfg      PipelineConfig
	log      *zap.Logger
	pipeline *gst.Pipeline
	sink     *app.Sink
	started  time.Time

	mu     sync.Mutex
	latest *Frame
	err    error

	seq     uint64
	dropped uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPipeline builds and starts the pipeline. The bus is watched until ctx
// is cancelled or Close is called.
func NewPipeline(ctx context.Context, cfg PipelineConfig) (*Pipeline, error) {
	desc, err := launchDescription(cfg)
	if err != nil {
		return nil, err
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %w", ErrPipeline, desc, err)
	}
	elem, err := pipeline.GetElementByName(sinkName)
	if err != nil {
		return nil, fmt.Errorf("%w: appsink not found: %w", ErrPipeline, err)
	}

	p := &Pipeline{
		cfg:      cfg,
		log:      logger.Named("source", zap.String("kind", "pipeline")),
		pipeline: pipeline,
		sink:     app.SinkFromElement(elem),
		started:  time.Now(),
	}
	p.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: p.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("%w: starting pipeline: %w", ErrPipeline, err)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.watchBus(ctx)

	p.log.Info("gstreamer source started",
		zap.String("launch", cfg.Launch),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
	)
	return p, nil
}

func (p *Pipeline) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		p.log.Warn("failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		p.log.Warn("sample without buffer, skipping frame")
		return gst.FlowOK
	}

	pts := time.Duration(buffer.PresentationTimestamp())
	if pts < 0 {
		pts = time.Since(p.started)
	}

	mapInfo := buffer.Map(gst.MapRead)
	frame, err := newFrame(atomic.AddUint64(&p.seq, 1), pts, p.cfg.Width, p.cfg.Height, mapInfo.Bytes())
	buffer.Unmap()
	if err != nil {
		p.log.Warn("dropping frame", zap.Error(err))
		return gst.FlowOK
	}

	p.mu.Lock()
	if p.latest != nil {
		p.dropped++
	}
	p.latest = &frame
	p.mu.Unlock()

	p.log.Debug("frame received",
		zap.Uint64("seq", frame.Seq),
		zap.Duration("pts", frame.PTS),
		zap.String("trace_id", frame.TraceID),
	)
	return gst.FlowOK
}

func (p *Pipeline) watchBus(ctx context.Context) {
	defer p.wg.Done()
	bus := p.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			p.log.Info("gstreamer source reached end of stream",
				zap.Duration("uptime", time.Since(p.started)),
				zap.Uint64("frames", atomic.LoadUint64(&p.seq)),
			)
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			p.log.Error("gstreamer pipeline error",
				zap.String("error", gerr.Error()),
				zap.String("debug", gerr.DebugString()),
				zap.Uint64("frames", atomic.LoadUint64(&p.seq)),
			)
			p.mu.Lock()
			p.err = fmt.Errorf("%w: %s", ErrPipeline, gerr.Error())
			p.mu.Unlock()
			return
		}
	}
}

// Next implements Source.
func (p *Pipeline) Next() (Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return Frame{}, false
	}
	f := *p.latest
	p.latest = nil
	return f, true
}

// Err implements Source.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Dropped returns how many frames were replaced before being consumed.
func (p *Pipeline) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close stops the pipeline and waits for the bus watcher.
func (p *Pipeline) Close() error {
	p.cancel()
	p.wg.Wait()
	if err := p.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("%w: stopping pipeline: %w", ErrPipeline, err)
	}
	p.log.Info("gstreamer source stopped", zap.Uint64("frames", atomic.LoadUint64(&p.seq)), zap.Uint64("dropped", p.Dropped()))
	return nil
}
