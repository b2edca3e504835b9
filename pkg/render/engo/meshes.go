// pkg/render/engo/meshes.go
package engo

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/logging"
	"github.com/opd-ai/go-spacefly/pkg/physics"
	"github.com/opd-ai/go-spacefly/pkg/render"
)

// Sink receives drawable entities. *common.RenderSystem implements it.
type Sink interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// Z layers, back to front.
const (
	zShell float32 = iota
	zBody
	zCollectible
	zCraft
)

// minPixels keeps far-away bodies visible as a dot.
const minPixels = 2

// MeshScene implements render.Scene on engo entities. Spheres become
// circles and boxes become squares seen from above; Project places them on
// screen each frame.
type MeshScene struct {
	sink   Sink
	logger *logging.Logger
	load   func(url string) error

	mu        sync.Mutex
	nextID    uint64
	meshes    map[uint64]*meshEntity
	materials map[uint64]*sceneResource
	textures  map[uint64]*sceneResource
}

// NewMeshScene creates a scene that adds entities to sink. A nil load uses
// engo.Files.Load.
func NewMeshScene(sink Sink, load func(url string) error, logger *logging.Logger) *MeshScene {
	if logger == nil {
		logger = logging.Discard()
	}
	if load == nil {
		load = func(url string) error { return engo.Files.Load(url) }
	}
	return &MeshScene{
		sink:      sink,
		logger:    logger.Component("mesh_scene"),
		load:      load,
		nextID:    1,
		meshes:    make(map[uint64]*meshEntity),
		materials: make(map[uint64]*sceneResource),
		textures:  make(map[uint64]*sceneResource),
	}
}

func (s *MeshScene) allocID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// CreateMaterial implements render.Scene.
func (s *MeshScene) CreateMaterial(opts render.MaterialOptions) (render.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &sceneResource{id: s.allocID(), name: opts.Name, color: MaterialColor(opts)}
	m.release = func() { s.release(s.materials, m.id) }
	s.materials[m.id] = m
	return m, nil
}

// CreateSphere implements render.Scene.
func (s *MeshScene) CreateSphere(opts render.SphereOptions) (render.Mesh, error) {
	if opts.Diameter <= 0 {
		return nil, fmt.Errorf("create sphere %q: diameter must be positive", opts.Name)
	}
	z := zBody
	if opts.Parent != nil {
		z = zShell
	}
	m := s.newMesh(opts.Name, render.SphereMesh, opts.Position, opts.Diameter, opts.Material, common.Circle{}, z)
	if opts.Parent != nil {
		m.parent = opts.Parent
		m.offset = opts.Position.Sub(opts.Parent.Position())
	}
	s.add(m)
	return m, nil
}

// CreateBox implements render.Scene.
func (s *MeshScene) CreateBox(opts render.BoxOptions) (render.Mesh, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("create box %q: size must be positive", opts.Name)
	}
	m := s.newMesh(opts.Name, render.BoxMesh, opts.Position, opts.Size, opts.Material, common.Rectangle{}, zCollectible)
	m.rotation = HeadingDegrees(opts.Rotation)
	s.add(m)
	return m, nil
}

func (s *MeshScene) newMesh(name string, kind render.MeshKind, pos mgl64.Vec3, size float64, mat render.Material, shape common.Drawable, z float32) *meshEntity {
	m := &meshEntity{
		BasicEntity: ecs.NewBasic(),
		scene:       s,
		name:        name,
		kind:        kind,
		pos:         pos,
		size:        size,
	}
	m.RenderComponent = common.RenderComponent{
		Drawable: shape,
		Color:    color.NRGBA{200, 200, 200, 255},
		Scale:    engo.Point{X: 1, Y: 1},
	}
	if r, ok := mat.(*sceneResource); ok {
		m.RenderComponent.Color = r.color
		m.material = r.name
	} else if mat != nil {
		m.material = mat.Name()
	}
	m.RenderComponent.StartZIndex = z
	return m
}

func (s *MeshScene) add(m *meshEntity) {
	s.mu.Lock()
	m.id = s.allocID()
	s.meshes[m.id] = m
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.Add(&m.BasicEntity, &m.RenderComponent, &m.SpaceComponent)
	}
	s.logger.Debug(context.Background(), "mesh created", "mesh", m.name, "id", m.id, "size", m.size)
}

// LoadTexture implements render.Scene. The file is loaded through engo's
// asset store; a failure wraps render.ErrTextureLoad.
func (s *MeshScene) LoadTexture(url string) (render.Texture, error) {
	if err := s.load(url); err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", url, render.ErrTextureLoad, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTexture(url), nil
}

// TextureFromImage implements render.Scene.
func (s *MeshScene) TextureFromImage(name string, img image.Image) (render.Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("texture %q: nil image", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTexture(name), nil
}

func (s *MeshScene) addTexture(name string) *sceneResource {
	t := &sceneResource{id: s.allocID(), name: name}
	t.release = func() { s.release(s.textures, t.id) }
	s.textures[t.id] = t
	return t
}

func (s *MeshScene) release(registry map[uint64]*sceneResource, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(registry, id)
}

// Project places every mesh on screen for the camera's current view.
// Meshes entirely outside the viewport are hidden.
func (s *MeshScene) Project(cam *CameraSystem) {
	s.mu.Lock()
	live := make([]*meshEntity, 0, len(s.meshes))
	for _, m := range s.meshes {
		live = append(live, m)
	}
	s.mu.Unlock()

	w, h := cam.Viewport()
	for _, m := range live {
		px := math.Max(m.size*cam.Zoom(), minPixels)
		center := cam.WorldToScreen(m.Position())
		sc := &m.SpaceComponent
		sc.Width, sc.Height = float32(px), float32(px)
		sc.Rotation = float32(m.rotation)
		sc.SetCenter(center)

		half := px / 2
		cx, cy := float64(center.X), float64(center.Y)
		m.RenderComponent.Hidden = cx+half < 0 || cy+half < 0 || cx-half > w || cy-half > h
	}
}

// Meshes returns the live meshes ordered by id.
func (s *MeshScene) Meshes() []render.MeshInfo {
	s.mu.Lock()
	live := make([]*meshEntity, 0, len(s.meshes))
	for _, m := range s.meshes {
		live = append(live, m)
	}
	s.mu.Unlock()

	out := make([]render.MeshInfo, 0, len(live))
	for _, m := range live {
		out = append(out, render.MeshInfo{ID: m.id, Name: m.name, Kind: m.kind, Position: m.Position(), Size: m.size, Material: m.material})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MeshCount returns the number of live meshes whose name starts with prefix.
func (s *MeshScene) MeshCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.meshes {
		if strings.HasPrefix(m.name, prefix) {
			n++
		}
	}
	return n
}

// MaterialCount returns the number of live materials.
func (s *MeshScene) MaterialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.materials)
}

// TextureCount returns the number of live textures.
func (s *MeshScene) TextureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures)
}

// Entity returns the engo components of a live mesh.
func (s *MeshScene) Entity(id uint64) (*common.RenderComponent, *common.SpaceComponent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meshes[id]
	if !ok {
		return nil, nil, false
	}
	return &m.RenderComponent, &m.SpaceComponent, true
}

// HeadingDegrees returns the clockwise screen rotation, in degrees, of the
// forward axis projected on X/Z. Zero points up the screen.
func HeadingDegrees(q mgl64.Quat) float64 {
	if q == (mgl64.Quat{}) {
		return 0
	}
	fwd := q.Rotate(physics.AxisForward)
	if math.Abs(fwd.X()) < 1e-9 && math.Abs(fwd.Z()) < 1e-9 {
		return 0
	}
	return mgl64.RadToDeg(math.Atan2(fwd.X(), fwd.Z()))
}

type sceneResource struct {
	id      uint64
	name    string
	color   color.NRGBA
	release func()
	once    sync.Once
}

func (r *sceneResource) Name() string { return r.name }

func (r *sceneResource) Dispose() { r.once.Do(r.release) }

type meshEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent

	scene    *MeshScene
	id       uint64
	name     string
	kind     render.MeshKind
	material string
	size     float64
	rotation float64

	pos    mgl64.Vec3
	parent render.Mesh
	offset mgl64.Vec3
	once   sync.Once
}

func (m *meshEntity) ID() uint64   { return m.id }
func (m *meshEntity) Name() string { return m.name }

// Position returns the world position. Child meshes follow their parent.
func (m *meshEntity) Position() mgl64.Vec3 {
	if m.parent != nil {
		return m.parent.Position().Add(m.offset)
	}
	m.scene.mu.Lock()
	defer m.scene.mu.Unlock()
	return m.pos
}

func (m *meshEntity) SetPosition(p mgl64.Vec3) {
	if m.parent != nil {
		m.offset = p.Sub(m.parent.Position())
		return
	}
	m.scene.mu.Lock()
	defer m.scene.mu.Unlock()
	m.pos = p
}

func (m *meshEntity) Dispose() {
	m.once.Do(func() {
		m.scene.mu.Lock()
		delete(m.scene.meshes, m.id)
		m.scene.mu.Unlock()
		if m.scene.sink != nil {
			m.scene.sink.Remove(m.BasicEntity)
		}
	})
}
