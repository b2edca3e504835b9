// pkg/entity/factory.go
package entity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/logging"
	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

// FactoryOptions carries the collaborators of a BodyFactory.
type FactoryOptions struct {
	Scene render.Scene
	// Space receives static colliders. A nil Space builds bodies without
	// colliders, which is how the game runs when physics failed to start.
	Space    physics.Space
	Textures *render.TextureLoader
	Bus      *event.Bus
	Logger   *logging.Logger
	Rand     *rand.Rand
}

// ChunkRequest describes the bodies to spawn for one chunk.
type ChunkRequest struct {
	Center    mgl64.Vec3
	ChunkSize float64
	Count     int
	Density   float64
	MinSize   float64
	MaxSize   float64
}

// BodyFactory creates celestial bodies and collectibles. Materials and
// textures that many bodies use are created on first use, shared by
// reference and released once in Dispose.
type BodyFactory struct {
	cfg      Config
	ctx      context.Context
	scene    render.Scene
	space    physics.Space
	textures *render.TextureLoader
	bus      *event.Bus
	logger   *logging.Logger
	rng      *rand.Rand

	placementWarn rate.Sometimes
	fallbackWarn  rate.Sometimes

	atmosphere     render.Material
	palette        []render.Material
	surfaces       map[string]render.Material
	clusterSurface render.Material
	fallback       render.Material
	fallbackTex    render.Texture
	bump           render.Texture
	bumpTried      bool
	owned          []render.Texture
	clusterIndex   int
	disposed       bool
}

// NewBodyFactory creates a factory. ctx supplies the session id attached to
// the factory's log entries.
func NewBodyFactory(ctx context.Context, cfg Config, opts FactoryOptions) *BodyFactory {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	textures := opts.Textures
	if textures == nil {
		textures = render.NewTextureLoader(opts.Scene, render.DefaultBreakerConfig(), logger)
	}

	return &BodyFactory{
		cfg:           cfg,
		ctx:           ctx,
		scene:         opts.Scene,
		space:         opts.Space,
		textures:      textures,
		bus:           opts.Bus,
		logger:        logger.Component("body_factory"),
		rng:           rng,
		placementWarn: rate.Sometimes{First: 1, Interval: time.Second},
		fallbackWarn:  rate.Sometimes{First: 1, Interval: time.Second},
		palette:       make([]render.Material, len(clusterPalette)),
		surfaces:      make(map[string]render.Material),
	}
}

// Config returns the factory's settings.
func (f *BodyFactory) Config() Config {
	return f.cfg
}

// Create builds a body with its mesh, atmosphere and collider. The mesh and
// collider exist together or not at all: if the collider cannot be added the
// mesh is released and the error returned.
func (f *BodyFactory) Create(pos mgl64.Vec3, size float64, style Style) (*CelestialBody, error) {
	if f.disposed {
		return nil, errors.New("body factory is disposed")
	}
	if !(size > 0) || math.IsInf(size, 0) || !physics.IsFinite(pos) {
		return nil, fmt.Errorf("invalid body at %v with size %v", pos, size)
	}

	basic := ecs.NewBasic()
	mesh, err := f.scene.CreateSphere(render.SphereOptions{
		Name:     fmt.Sprintf("planet-%d", basic.ID()),
		Position: pos,
		Diameter: size,
		Segments: f.cfg.Segments,
		Material: f.surfaceMaterial(style),
	})
	if err != nil {
		return nil, fmt.Errorf("create body mesh: %w", err)
	}

	var collider physics.Collider
	if f.space != nil {
		friction := f.cfg.Friction
		if style == StyleCluster {
			friction = f.cfg.Cluster.Friction
		}
		collider, err = f.space.AddStaticSphere(pos, size/2, physics.Material{Friction: friction})
		if err != nil {
			mesh.Dispose()
			return nil, fmt.Errorf("create body collider: %w", err)
		}
	}

	body := &CelestialBody{
		BasicEntity: basic,
		position:    pos,
		size:        size,
		style:       style,
		mesh:        mesh,
		collider:    collider,
	}
	body.atmosphere = f.createAtmosphere(body)

	f.bus.Publish(event.NewBodyEvent(event.BodySpawned, f, body.ID(), pos, size))
	return body, nil
}

// SpawnInChunk spawns floor(Count*Density) bodies at Center plus a uniform
// offset of up to half a chunk on every axis. Bodies that fail to build are
// logged and skipped.
func (f *BodyFactory) SpawnInChunk(req ChunkRequest) []*CelestialBody {
	n := int(math.Floor(float64(req.Count) * req.Density))
	extent := mgl64.Vec3{req.ChunkSize, req.ChunkSize, req.ChunkSize}

	bodies := make([]*CelestialBody, 0, n)
	for i := 0; i < n; i++ {
		pos := offset(f.rng, req.Center, extent)
		body, err := f.Create(pos, uniform(f.rng, req.MinSize, req.MaxSize), StyleStreamed)
		if err != nil {
			f.logger.Error(f.ctx, "chunk body skipped", err, "center", req.Center)
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies
}

// SpawnClustered places the seed cluster with PlanCluster. The returned
// bodies are always usable; a non-nil error lists the skipped placements and
// matches ErrPlacementExhausted.
func (f *BodyFactory) SpawnClustered(cfg ClusterConfig) ([]*CelestialBody, error) {
	accepted, skipped := PlanCluster(f.rng, cfg)

	var errs []error
	for _, i := range skipped {
		err := fmt.Errorf("cluster body %d after %d attempts: %w", i, cfg.MaxAttempts, ErrPlacementExhausted)
		errs = append(errs, err)
		f.placementWarn.Do(func() {
			f.logger.Warn(f.ctx, "cluster placement skipped", "index", i, "attempts", cfg.MaxAttempts)
		})
		f.bus.Publish(event.NewFailureEvent(event.PlacementFailed, f, err))
	}

	bodies := make([]*CelestialBody, 0, len(accepted))
	for _, c := range accepted {
		body, err := f.Create(c.Position, c.Size, StyleCluster)
		if err != nil {
			errs = append(errs, err)
			f.logger.Error(f.ctx, "cluster body skipped", err, "position", c.Position)
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies, errors.Join(errs...)
}

// SpawnScattered places the starter bodies uniformly inside the box
// [-halfExtent, halfExtent] with no spacing check.
func (f *BodyFactory) SpawnScattered(cfg StarterConfig) []*CelestialBody {
	extent := cfg.HalfExtent.Mul(2)
	bodies := make([]*CelestialBody, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		pos := offset(f.rng, mgl64.Vec3{}, extent)
		body, err := f.Create(pos, uniform(f.rng, cfg.MinSize, cfg.MaxSize), StyleStreamed)
		if err != nil {
			f.logger.Error(f.ctx, "starter body skipped", err)
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies
}

// CreateCollectible builds a box with a random colour and rotation.
func (f *BodyFactory) CreateCollectible(pos mgl64.Vec3) (*Collectible, error) {
	if f.disposed {
		return nil, errors.New("body factory is disposed")
	}
	basic := ecs.NewBasic()

	diffuse := render.Color{R: f.rng.Float64(), G: f.rng.Float64(), B: f.rng.Float64(), A: 1}
	mat, err := f.scene.CreateMaterial(render.MaterialOptions{
		Name:          fmt.Sprintf("box-material-%d", basic.ID()),
		DiffuseColor:  diffuse,
		EmissiveColor: render.Color{R: diffuse.R * 0.9, G: diffuse.G * 0.9, B: diffuse.B * 0.9, A: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create box material: %w", err)
	}

	turn := 2 * math.Pi
	mesh, err := f.scene.CreateBox(render.BoxOptions{
		Name:     fmt.Sprintf("box-%d", basic.ID()),
		Position: pos,
		Rotation: mgl64.AnglesToQuat(f.rng.Float64()*turn, f.rng.Float64()*turn, f.rng.Float64()*turn, mgl64.XYZ),
		Size:     f.cfg.Collectible.Size,
		Material: mat,
	})
	if err != nil {
		mat.Dispose()
		return nil, fmt.Errorf("create box mesh: %w", err)
	}

	c := &Collectible{BasicEntity: basic, position: pos, mesh: mesh, material: mat}
	if f.cfg.Collectible.Colliders && f.space != nil {
		c.collider, err = f.space.AddStaticSphere(pos, f.cfg.Collectible.Size/2, physics.Material{Friction: f.cfg.Friction})
		if err != nil {
			mesh.Dispose()
			mat.Dispose()
			return nil, fmt.Errorf("create box collider: %w", err)
		}
	}
	return c, nil
}

// Dispose releases the shared materials and textures. Bodies created by the
// factory must be disposed by their owners first.
func (f *BodyFactory) Dispose() {
	if f.disposed {
		return
	}
	f.disposed = true

	release := func(m render.Material) {
		if m != nil {
			m.Dispose()
		}
	}
	release(f.atmosphere)
	release(f.clusterSurface)
	release(f.fallback)
	for _, m := range f.palette {
		release(m)
	}
	for _, m := range f.surfaces {
		release(m)
	}
	for _, t := range f.owned {
		t.Dispose()
	}
	f.atmosphere, f.clusterSurface, f.fallback, f.bump, f.fallbackTex = nil, nil, nil, nil, nil
	f.surfaces = map[string]render.Material{}
	f.owned = nil
}

func (f *BodyFactory) createAtmosphere(body *CelestialBody) render.Mesh {
	scale := f.cfg.AtmosphereScale
	var mat render.Material
	if body.style == StyleCluster {
		scale = f.cfg.Cluster.AtmosphereScale
		mat = f.paletteMaterial(f.clusterIndex)
		f.clusterIndex++
	} else {
		mat = f.atmosphereMaterial()
	}
	if mat == nil {
		return nil
	}

	shell, err := f.scene.CreateSphere(render.SphereOptions{
		Name:     fmt.Sprintf("atmosphere-%d", body.ID()),
		Position: body.position,
		Diameter: body.size * scale,
		Segments: 32,
		Material: mat,
		Parent:   body.mesh,
	})
	if err != nil {
		f.logger.Error(f.ctx, "atmosphere skipped", err, "body", body.ID())
		return nil
	}
	return shell
}

func (f *BodyFactory) atmosphereMaterial() render.Material {
	if f.atmosphere == nil {
		f.atmosphere = f.material(render.MaterialOptions{
			Name:          "atmosphere",
			EmissiveColor: render.Color{R: 0.2, G: 0.5, B: 0.5, A: 1},
			Alpha:         f.cfg.AtmosphereAlpha,
		})
	}
	return f.atmosphere
}

func (f *BodyFactory) paletteMaterial(i int) render.Material {
	i %= len(clusterPalette)
	if f.palette[i] == nil {
		f.palette[i] = f.material(render.MaterialOptions{
			Name:          fmt.Sprintf("cluster-atmosphere-%d", i),
			EmissiveColor: clusterPalette[i],
			Alpha:         f.cfg.Cluster.AtmosphereAlpha,
		})
	}
	return f.palette[i]
}

// surfaceMaterial picks the surface for a new body, falling back to the
// procedural material when its texture is unavailable.
func (f *BodyFactory) surfaceMaterial(style Style) render.Material {
	if style == StyleCluster {
		if f.clusterSurface == nil {
			tex, err := f.textures.Load(f.ctx, f.cfg.Cluster.Texture)
			if err != nil {
				f.warnFallback(f.cfg.Cluster.Texture, err)
				return f.fallbackMaterial()
			}
			f.owned = append(f.owned, tex)
			f.clusterSurface = f.material(render.MaterialOptions{Name: "cluster-surface", Diffuse: tex})
		}
		return f.clusterSurface
	}

	if len(f.cfg.Textures) == 0 {
		return f.fallbackMaterial()
	}
	url := f.cfg.Textures[f.rng.IntN(len(f.cfg.Textures))]
	if m, ok := f.surfaces[url]; ok {
		return m
	}
	tex, err := f.textures.Load(f.ctx, url)
	if err != nil {
		f.warnFallback(url, err)
		return f.fallbackMaterial()
	}
	f.owned = append(f.owned, tex)
	m := f.material(render.MaterialOptions{
		Name:         "surface-" + url,
		Diffuse:      tex,
		Bump:         f.bumpTexture(),
		BumpLevel:    f.cfg.BumpLevel,
		DiffuseColor: render.Color{R: 0.8, G: 0.8, B: 0.8, A: 1},
	})
	if m != nil {
		f.surfaces[url] = m
	}
	return m
}

func (f *BodyFactory) bumpTexture() render.Texture {
	if f.bumpTried || f.cfg.BumpTexture == "" {
		return f.bump
	}
	f.bumpTried = true
	tex, err := f.textures.Load(f.ctx, f.cfg.BumpTexture)
	if err != nil {
		f.warnFallback(f.cfg.BumpTexture, err)
		return nil
	}
	f.owned = append(f.owned, tex)
	f.bump = tex
	return tex
}

func (f *BodyFactory) fallbackMaterial() render.Material {
	if f.fallback != nil {
		return f.fallback
	}
	if f.fallbackTex == nil {
		tex, err := render.ProceduralTexture(f.scene, "fallback-noise", render.DefaultNoiseOptions(), f.rng)
		if err != nil {
			f.logger.Error(f.ctx, "procedural fallback unavailable", err)
		} else {
			f.fallbackTex = tex
			f.owned = append(f.owned, tex)
		}
	}
	f.fallback = f.material(render.MaterialOptions{
		Name:         "surface-fallback",
		Diffuse:      f.fallbackTex,
		DiffuseColor: render.Color{R: 0.8, G: 0.8, B: 0.8, A: 1},
	})
	return f.fallback
}

// material creates a material, logging and returning nil on failure so the
// mesh is still built untextured.
func (f *BodyFactory) material(opts render.MaterialOptions) render.Material {
	m, err := f.scene.CreateMaterial(opts)
	if err != nil {
		f.logger.Error(f.ctx, "material unavailable", err, "material", opts.Name)
		return nil
	}
	return m
}

func (f *BodyFactory) warnFallback(url string, err error) {
	f.fallbackWarn.Do(func() {
		f.logger.Warn(f.ctx, "texture unavailable, using fallback", "url", url, "error", err.Error())
	})
}
