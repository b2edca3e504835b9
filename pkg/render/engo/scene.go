// Package engo hosts the game in a window. The world is drawn top-down on
// the X/Z plane: bodies as discs, collectibles as squares and the craft as
// a sprite turned to its heading.
package engo

import (
	"context"
	"errors"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-spacefly/pkg/engine"
	"github.com/opd-ai/go-spacefly/pkg/host"
	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// BuildFunc creates the game. deps arrives with Scene, Viewport, Trail and
// Logger filled in by the window.
type BuildFunc func(ctx context.Context, deps engine.Deps) (*engine.Game, error)

// Options configures a GameScene.
type Options struct {
	Build  BuildFunc
	Logger *logging.Logger
	// OnReady is called once the game is initialized.
	OnReady func(g *engine.Game)
	// LoadTexture loads a texture file; nil uses engo's asset store.
	LoadTexture func(url string) error
	// MaxFrames exits the window after that many frames; 0 runs until
	// the window closes.
	MaxFrames uint64
}

// FrameSystem ticks the frame loop with engo's frame delta and points the
// camera at the craft.
type FrameSystem struct {
	loop      *host.Loop
	game      *engine.Game
	camera    *CameraSystem
	maxFrames uint64
	onDone    func()
}

// Add satisfies the ecs.System interface
func (fs *FrameSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
}

// Remove satisfies the ecs.System interface
func (fs *FrameSystem) Remove(basic ecs.BasicEntity) {}

// Update runs one game frame.
func (fs *FrameSystem) Update(dt float32) {
	fs.loop.Tick(min(float64(dt), host.MaxFrameDelta))
	fs.camera.SetTarget(fs.game.CraftPosition())
	if fs.maxFrames > 0 && fs.loop.Frames() >= fs.maxFrames && fs.onDone != nil {
		fs.onDone()
	}
}

// GameScene is the engo scene that runs the game.
type GameScene struct {
	opts   Options
	ctx    context.Context
	logger *logging.Logger

	game     *engine.Game
	loop     *host.Loop
	meshes   *MeshScene
	camera   *CameraSystem
	renderer *RendererSystem
	hud      *HUDSystem
}

// NewGameScene creates a scene. ctx carries the session id into the game.
func NewGameScene(ctx context.Context, opts Options) (*GameScene, error) {
	if opts.Build == nil {
		return nil, errors.New("engo scene: a build function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &GameScene{opts: opts, ctx: ctx, logger: logger.Component("engo_scene")}, nil
}

// Type returns the scene type (required by Engo)
func (scene *GameScene) Type() string {
	return "SpaceflyScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *GameScene) Preload() {}

// Setup builds the systems and the game (required by Engo)
func (scene *GameScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		scene.logger.Error(scene.ctx, "engo scene needs an ecs world", errors.New("unexpected updater"))
		engo.Exit()
		return
	}
	common.SetBackground(color.RGBA{5, 5, 16, 255})

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)
	SetupInputBindings()
	SetupCameraControls()

	font, err := LoadHUDFont(18, color.White)
	if err != nil {
		scene.logger.Warn(scene.ctx, "hud text disabled", "error", err.Error())
	}

	if err := scene.build(renderSystem, CraftSprite(), font); err != nil {
		scene.logger.Error(scene.ctx, "game setup failed", err)
		engo.Exit()
		return
	}
	scene.game.Resize(int(engo.WindowWidth()), int(engo.WindowHeight()))
	engo.Mailbox.Listen("WindowResizeMessage", func(m engo.Message) {
		if msg, ok := m.(engo.WindowResizeMessage); ok {
			scene.game.Resize(msg.NewWidth, msg.NewHeight)
		}
	})

	world.AddSystem(NewInputSystem(scene.loop, nil, nil))
	world.AddSystem(&FrameSystem{
		loop:      scene.loop,
		game:      scene.game,
		camera:    scene.camera,
		maxFrames: scene.opts.MaxFrames,
		onDone:    engo.Exit,
	})
	world.AddSystem(scene.camera)
	world.AddSystem(scene.renderer)
	world.AddSystem(scene.hud)
}

// build wires the game to the window. It needs no GL context, so tests
// call it with a fake sink.
func (scene *GameScene) build(sink Sink, craft common.Drawable, font *common.Font) error {
	scene.meshes = NewMeshScene(sink, scene.opts.LoadTexture, scene.logger)
	scene.camera = NewCameraSystem(nil)
	scene.renderer = NewRendererSystem(nil, scene.camera, scene.meshes, sink, craft)

	game, err := scene.opts.Build(scene.ctx, engine.Deps{
		Scene:    scene.meshes,
		Viewport: scene.camera,
		Trail:    scene.renderer,
		Logger:   scene.logger,
	})
	if err != nil {
		return err
	}
	if err := game.Initialize(scene.ctx); err != nil {
		game.Dispose()
		return err
	}

	scene.game = game
	scene.renderer.view = game
	scene.hud = NewHUDSystem(game, sink, font)
	scene.loop = host.NewLoop(game.World(), scene.logger)
	game.Attach(scene.loop)
	scene.camera.SetTarget(game.CraftPosition())

	if scene.opts.OnReady != nil {
		scene.opts.OnReady(game)
	}
	return nil
}

// Exit releases the game (required by Engo)
func (scene *GameScene) Exit() {
	if scene.game != nil {
		scene.game.Dispose()
	}
	scene.logger.Info(scene.ctx, "window closed")
}

// Game returns the running game, or nil before Setup.
func (scene *GameScene) Game() *engine.Game {
	return scene.game
}

// Loop returns the frame loop, or nil before Setup.
func (scene *GameScene) Loop() *host.Loop {
	return scene.loop
}
