// pkg/render/null.go
package render

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// MeshKind distinguishes the primitive shapes a NullScene records.
type MeshKind int

const (
	SphereMesh MeshKind = iota
	BoxMesh
)

// MeshInfo is a read-only view of a live mesh in a NullScene.
type MeshInfo struct {
	ID       uint64
	Name     string
	Kind     MeshKind
	Position mgl64.Vec3
	Size     float64
	Material string
}

// NullScene is a Scene that renders nothing. It keeps a registry of live
// resources so headless hosts can draw them and tests can check for leaks.
type NullScene struct {
	logger *logging.Logger

	mu        sync.Mutex
	nextID    uint64
	meshes    map[uint64]*nullMesh
	materials map[uint64]*nullResource
	textures  map[uint64]*nullResource

	// MissingTextures lists texture URLs that fail to load. A "*" entry
	// fails every URL.
	MissingTextures map[string]bool
}

// NewNullScene creates a new NullScene with structured logging.
func NewNullScene(logger *logging.Logger) *NullScene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullScene{
		logger:    logger.Component("null_scene"),
		nextID:    1,
		meshes:    make(map[uint64]*nullMesh),
		materials: make(map[uint64]*nullResource),
		textures:  make(map[uint64]*nullResource),
	}
}

func (s *NullScene) allocID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// CreateMaterial implements Scene.
func (s *NullScene) CreateMaterial(opts MaterialOptions) (Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &nullResource{id: s.allocID(), name: opts.Name}
	m.release = func() { s.release(s.materials, m.id) }
	s.materials[m.id] = m
	s.logger.Debug(context.Background(), "CreateMaterial called", "material", opts.Name)
	return m, nil
}

// CreateSphere implements Scene.
func (s *NullScene) CreateSphere(opts SphereOptions) (Mesh, error) {
	if opts.Diameter <= 0 {
		return nil, fmt.Errorf("create sphere %q: diameter must be positive", opts.Name)
	}
	return s.addMesh(opts.Name, SphereMesh, opts.Position, opts.Diameter, opts.Material), nil
}

// CreateBox implements Scene.
func (s *NullScene) CreateBox(opts BoxOptions) (Mesh, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("create box %q: size must be positive", opts.Name)
	}
	return s.addMesh(opts.Name, BoxMesh, opts.Position, opts.Size, opts.Material), nil
}

func (s *NullScene) addMesh(name string, kind MeshKind, pos mgl64.Vec3, size float64, mat Material) *nullMesh {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &nullMesh{scene: s, id: s.allocID(), name: name, kind: kind, pos: pos, size: size}
	if mat != nil {
		m.material = mat.Name()
	}
	s.meshes[m.id] = m
	s.logger.Debug(context.Background(), "CreateMesh called", "mesh", name, "id", m.id, "size", size)
	return m
}

// LoadTexture implements Scene. Loading succeeds unless the URL is listed
// in MissingTextures.
func (s *NullScene) LoadTexture(url string) (Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MissingTextures[url] || s.MissingTextures["*"] {
		return nil, fmt.Errorf("load %s: %w", url, ErrTextureLoad)
	}
	return s.addTexture(url), nil
}

// TextureFromImage implements Scene.
func (s *NullScene) TextureFromImage(name string, img image.Image) (Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("texture %q: nil image", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTexture(name), nil
}

func (s *NullScene) addTexture(name string) *nullResource {
	t := &nullResource{id: s.allocID(), name: name}
	t.release = func() { s.release(s.textures, t.id) }
	s.textures[t.id] = t
	return t
}

func (s *NullScene) release(registry map[uint64]*nullResource, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(registry, id)
}

// Meshes returns the live meshes ordered by id.
func (s *NullScene) Meshes() []MeshInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MeshInfo, 0, len(s.meshes))
	for _, m := range s.meshes {
		out = append(out, MeshInfo{ID: m.id, Name: m.name, Kind: m.kind, Position: m.pos, Size: m.size, Material: m.material})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MeshCount returns the number of live meshes whose name starts with prefix.
func (s *NullScene) MeshCount(prefix string) int {
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
func (s *NullScene) MaterialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.materials)
}

// TextureCount returns the number of live textures.
func (s *NullScene) TextureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures)
}

type nullResource struct {
	id      uint64
	name    string
	release func()
	once    sync.Once
}

func (r *nullResource) Name() string { return r.name }

func (r *nullResource) Dispose() { r.once.Do(r.release) }

type nullMesh struct {
	scene    *NullScene
	id       uint64
	name     string
	kind     MeshKind
	pos      mgl64.Vec3
	size     float64
	material string
	once     sync.Once
}

func (m *nullMesh) ID() uint64   { return m.id }
func (m *nullMesh) Name() string { return m.name }

func (m *nullMesh) Position() mgl64.Vec3 {
	m.scene.mu.Lock()
	defer m.scene.mu.Unlock()
	return m.pos
}

func (m *nullMesh) SetPosition(p mgl64.Vec3) {
	m.scene.mu.Lock()
	defer m.scene.mu.Unlock()
	m.pos = p
}

func (m *nullMesh) Dispose() {
	m.once.Do(func() {
		m.scene.mu.Lock()
		defer m.scene.mu.Unlock()
		delete(m.scene.meshes, m.id)
	})
}
