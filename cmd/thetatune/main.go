// thetatune is an ImGui tool for lining up the view rotation of a
// dual-fisheye still before saving it as a config file.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/config"
	"github.com/Faultbox/thetawarp/internal/engine/debug"
	"github.com/Faultbox/thetawarp/internal/engine/framebuffer"
	"github.com/Faultbox/thetawarp/internal/engine/gpu"
	"github.com/Faultbox/thetawarp/internal/engine/texture"
	"github.com/Faultbox/thetawarp/internal/engine/warp"
	"github.com/Faultbox/thetawarp/internal/logger"
	"github.com/Faultbox/thetawarp/internal/viewer"
	"github.com/Faultbox/thetawarp/pkg/math"
)

const panelWidth = 320

func main() {
	runtime.LockOSThread()

	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	app.Run()
}

// App is the tuning window state.
type App struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	cfg     *config.Config
	gl      *gpu.GL
	filter  *warp.Filter
	output  *framebuffer.Framebuffer
	input   *texture.Texture
	shots   *debug.ScreenshotCapture
	started time.Time

	rotation  [3]float32
	noStitch  bool
	status    string
	statusErr bool

	pending pendingPaths
}

// pendingPaths hands paths picked in dialog goroutines to the render thread.
type pendingPaths struct {
	mu    sync.Mutex
	image string
	save  string
}

func (p *pendingPaths) setImage(path string) {
	p.mu.Lock()
	p.image = path
	p.mu.Unlock()
}

func (p *pendingPaths) setSave(path string) {
	p.mu.Lock()
	p.save = path
	p.mu.Unlock()
}

// take returns and clears both paths.
func (p *pendingPaths) take() (image, save string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	image, save = p.image, p.save
	p.image, p.save = "", ""
	return image, save
}

// NewApp creates the ImGui window and starts the warp on its GL context.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:      cfg,
		shots:    debug.NewScreenshotCapture("screenshots", "thetatune"),
		started:  time.Now(),
		rotation: cfg.Warp.Rotation,
		noStitch: cfg.Warp.DisableStitch,
	}

	var err error
	app.filter, err = viewer.NewFilter(cfg)
	if err != nil {
		return nil, err
	}

	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow("thetatune", cfg.Output.Width/2+panelWidth, cfg.Output.Height/2+40)

	if app.gl, err = gpu.NewGL(); err != nil {
		return nil, err
	}
	if err := app.filter.Start(app.gl); err != nil {
		return nil, err
	}
	app.output, err = framebuffer.New(app.gl, int32(cfg.Output.Width), int32(cfg.Output.Height))
	if err != nil {
		return nil, err
	}
	if cfg.Source.Image != "" {
		if err := app.loadImage(cfg.Source.Image); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Run starts the ImGui loop.
func (app *App) Run() {
	app.backend.Run(app.render)
}

// Close releases GPU objects.
func (app *App) Close() {
	if app.gl == nil {
		return
	}
	if app.input != nil {
		app.input.Destroy()
	}
	if app.output != nil {
		app.output.Destroy()
	}
	app.filter.Stop(app.gl)
}

func (app *App) loadImage(path string) error {
	img, err := texture.DecodeFile(path)
	if err != nil {
		return err
	}
	if app.input != nil {
		app.input.Destroy()
	}
	app.input = texture.FromImage(app.gl, img)
	app.cfg.Source.Image = path
	logger.Info("image loaded", zap.String("path", path), zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return nil
}

func (app *App) setStatus(err error, format string, args ...any) {
	if err != nil {
		app.status, app.statusErr = err.Error(), true
		logger.Warn("thetatune", zap.Error(err))
		return
	}
	app.status, app.statusErr = fmt.Sprintf(format, args...), false
}

func (app *App) render() {
	app.processPending()

	if app.input != nil {
		// The filter logs dropped frames itself.
		_ = app.filter.Process(app.gl, app.input.ID(), app.output, time.Since(app.started))
	}

	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(workPos)
	imgui.SetNextWindowSize(imgui.NewVec2(panelWidth, workSize.Y))
	if imgui.BeginV("Warp", nil, flags) {
		app.renderControls()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+panelWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X-panelWidth, workSize.Y))
	if imgui.BeginV("Panorama", nil, flags) {
		app.renderPreview()
	}
	imgui.End()
}

func (app *App) processPending() {
	image, save := app.pending.take()
	if image != "" {
		err := app.loadImage(image)
		app.setStatus(err, "Loaded %s", image)
	}
	if save != "" {
		app.cfg.Warp.Rotation = app.filter.Rotation()
		app.cfg.Warp.DisableStitch = app.filter.StitchDisabled()
		err := app.cfg.SaveTo(save)
		app.setStatus(err, "Saved %s", save)
	}
}

func (app *App) renderControls() {
	app.rotation = app.filter.Rotation()
	changed := false
	for axis, label := range []string{"X", "Y", "Z"} {
		if imgui.SliderFloatV(label, &app.rotation[axis], warp.MinAngle, warp.MaxAngle, "%.1f deg", imgui.SliderFlagsNone) {
			changed = true
		}
	}
	if changed {
		if err := app.filter.SetRotation(app.rotation); err != nil {
			app.setStatus(err, "")
		}
	}
	if imgui.Button("Reset rotation") {
		if err := app.filter.SetRotation(warp.DefaultRotation); err != nil {
			app.setStatus(err, "")
		}
	}

	imgui.Separator()
	app.noStitch = app.filter.StitchDisabled()
	if imgui.Checkbox("Disable stitching", &app.noStitch) {
		app.filter.SetStitchDisabled(app.noStitch)
	}

	imgui.Separator()
	if imgui.Button("Open image...") {
		app.openImageDialog()
	}
	imgui.SameLine()
	if imgui.Button("Save config...") {
		app.saveConfigDialog()
	}
	if imgui.Button("Screenshot") {
		path, err := app.shots.Capture(app.output.Image())
		app.setStatus(err, "Saved %s", path)
	}

	lon, lat := math.ViewCenter(app.rotation)
	imgui.Text(fmt.Sprintf("Center: lon %.1f, lat %.1f", lon, lat))

	imgui.Separator()
	w, h := app.output.Size()
	imgui.Text(fmt.Sprintf("Output: %d x %d", w, h))
	if app.cfg.Source.Image != "" {
		imgui.TextWrapped(app.cfg.Source.Image)
	}
	if app.status != "" {
		if app.statusErr {
			imgui.TextColored(imgui.NewVec4(1, 0.4, 0.4, 1), app.status)
		} else {
			imgui.TextWrapped(app.status)
		}
	}
}

func (app *App) renderPreview() {
	if app.input == nil {
		imgui.TextDisabled("Open a dual-fisheye image to start")
		return
	}

	w, h := app.output.Size()
	avail := imgui.ContentRegionAvail()
	displayW := avail.X
	displayH := displayW * float32(h) / float32(w)
	if displayH > avail.Y {
		displayH = avail.Y
		displayW = displayH * float32(w) / float32(h)
	}

	// Flip V: the color attachment is bottom row first.
	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(app.output.ColorTexture()))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(displayW, displayH),
		imgui.NewVec2(0, 1),
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0.15, 0.15, 0.15, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)
}

func (app *App) openImageDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("Images", "png", "jpg", "jpeg", "bmp", "tif", "tiff").
			Filter("All Files", "*").
			Title("Open dual-fisheye image").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Warn("file dialog", zap.Error(err))
			}
			return
		}
		app.pending.setImage(filename)
	}()
}

func (app *App) saveConfigDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("YAML", "yaml", "yml").
			Title("Save config").
			SetStartDir(config.ConfigDir()).
			Save()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Warn("file dialog", zap.Error(err))
			}
			return
		}
		app.pending.setSave(filename)
	}()
}
