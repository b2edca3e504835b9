// Package chunk streams celestial bodies in and out of a window of grid
// cells around the craft.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacefly/pkg/entity"
	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/gravity"
	"github.com/opd-ai/go-spacefly/pkg/logging"
)

// Config controls the streaming window.
type Config struct {
	ChunkSize          float64 `json:"chunkSize" yaml:"chunkSize"`
	GenerationDistance float64 `json:"generationDistance" yaml:"generationDistance"`
	UpdateThreshold    float64 `json:"updateThreshold" yaml:"updateThreshold"`
	BodiesPerChunk     int     `json:"bodiesPerChunk" yaml:"bodiesPerChunk"`
	Density            float64 `json:"density" yaml:"density"`
	MinSize            float64 `json:"minSize" yaml:"minSize"`
	MaxSize            float64 `json:"maxSize" yaml:"maxSize"`
}

// DefaultConfig returns the stock streaming settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:          3000,
		GenerationDistance: 5000,
		UpdateThreshold:    800,
		BodiesPerChunk:     1,
		Density:            1.0,
		MinSize:            50,
		MaxSize:            600,
	}
}

// Window returns the cell offsets scanned around the craft's cell: every
// offset k whose cell centre, measured from the craft's cell origin, lies
// within GenerationDistance on X and Z and GenerationDistance/2 on Y. The
// craft's own layer (k = 0) is always included.
func (c Config) Window() (xz, y []int) {
	return axisOffsets(c.GenerationDistance, c.ChunkSize), axisOffsets(c.GenerationDistance/2, c.ChunkSize)
}

func axisOffsets(reach, size float64) []int {
	if size <= 0 {
		return []int{0}
	}
	lo := int(math.Floor(-reach/size - 0.5))
	hi := int(math.Ceil(reach/size - 0.5))
	offsets := make([]int, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		if k == 0 || math.Abs(float64(k)*size+size/2) <= reach {
			offsets = append(offsets, k)
		}
	}
	return offsets
}

// Capacity returns the number of cells in one window.
func (c Config) Capacity() int {
	xz, y := c.Window()
	return len(xz) * len(xz) * len(y)
}

// MaxResident bounds the loaded chunk count after any update: every kept
// cell has its centre within the retire distance.
func (c Config) MaxResident() int {
	k := int(math.Ceil(c.RetireDistance()/c.ChunkSize + 0.5))
	return (2*k + 1) * (2*k + 1) * (2*k + 1)
}

// RetireDistance is the cell-centre distance beyond which a chunk retires.
func (c Config) RetireDistance() float64 {
	return c.GenerationDistance * 1.5
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunkSize must be positive, got %v", c.ChunkSize))
	}
	if c.GenerationDistance <= 0 {
		errs = append(errs, fmt.Errorf("generationDistance must be positive, got %v", c.GenerationDistance))
	}
	if c.UpdateThreshold < 0 {
		errs = append(errs, fmt.Errorf("updateThreshold must not be negative, got %v", c.UpdateThreshold))
	}
	if c.BodiesPerChunk < 0 {
		errs = append(errs, fmt.Errorf("bodiesPerChunk must not be negative, got %d", c.BodiesPerChunk))
	}
	if c.Density < 0 {
		errs = append(errs, fmt.Errorf("density must not be negative, got %v", c.Density))
	}
	if c.MinSize <= 0 || c.MaxSize < c.MinSize {
		errs = append(errs, fmt.Errorf("sizes must satisfy 0 < minSize <= maxSize, got [%v, %v]", c.MinSize, c.MaxSize))
	}
	return errors.Join(errs...)
}

// Generator creates the bodies of a chunk.
type Generator interface {
	SpawnInChunk(req entity.ChunkRequest) []*entity.CelestialBody
}

// Tracker receives bodies that should attract the craft.
type Tracker interface {
	Track(s gravity.Source)
	Untrack(id uint64)
}

// Options carries the optional collaborators of a Streamer.
type Options struct {
	Tracker Tracker
	Bus     *event.Bus
	Logger  *logging.Logger
	Context context.Context
}

// Stats summarises one Update call.
type Stats struct {
	Scanned         bool
	ChunksGenerated int
	ChunksRetired   int
	BodiesSpawned   int
	BodiesRetired   int
}

// Streamer owns the loaded chunk set and every body it created or adopted.
type Streamer struct {
	cfg     Config
	gen     Generator
	tracker Tracker
	bus     *event.Bus
	logger  *logging.Logger
	ctx     context.Context

	loaded     map[Key]struct{}
	bodies     map[uint64]*entity.CelestialBody
	last       mgl64.Vec3
	hasUpdated bool
}

// NewStreamer creates a streamer with nothing loaded.
func NewStreamer(cfg Config, gen Generator, opts Options) *Streamer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Streamer{
		cfg:     cfg,
		gen:     gen,
		tracker: opts.Tracker,
		bus:     opts.Bus,
		logger:  logger.Component("chunk_streamer"),
		ctx:     ctx,
		loaded:  make(map[Key]struct{}),
		bodies:  make(map[uint64]*entity.CelestialBody),
	}
}

// Config returns the streaming settings.
func (s *Streamer) Config() Config {
	return s.cfg
}

// Update re-centres the window on pos. It does nothing unless pos moved at
// least UpdateThreshold since the last scan. The first call after creation
// or Dispose scans regardless of distance, so a craft starting at the
// origin gets its window immediately instead of after its first 800 units.
//
// Window cells whose centre is already beyond the retire distance from pos
// are not generated; the retire pass would drop them in the same call.
func (s *Streamer) Update(pos mgl64.Vec3) Stats {
	var st Stats
	if s.hasUpdated && pos.Sub(s.last).Len() < s.cfg.UpdateThreshold {
		return st
	}
	s.hasUpdated = true
	s.last = pos
	st.Scanned = true

	s.generate(pos, &st)
	s.retire(pos, &st)

	if st.ChunksGenerated > 0 || st.ChunksRetired > 0 {
		s.logger.Debug(s.ctx, "chunks updated",
			"generated", st.ChunksGenerated,
			"retired", st.ChunksRetired,
			"loaded", len(s.loaded),
			"bodies", len(s.bodies),
		)
	}
	return st
}

func (s *Streamer) generate(pos mgl64.Vec3, st *Stats) {
	base := KeyFor(pos, s.cfg.ChunkSize)
	xz, ys := s.cfg.Window()

	for _, dx := range xz {
		for _, dy := range ys {
			for _, dz := range xz {
				key := base.Add(dx, dy, dz)
				if _, ok := s.loaded[key]; ok || s.beyondRetire(key, pos) {
					continue
				}
				bodies := s.gen.SpawnInChunk(entity.ChunkRequest{
					Center:    key.Center(s.cfg.ChunkSize),
					ChunkSize: s.cfg.ChunkSize,
					Count:     s.cfg.BodiesPerChunk,
					Density:   s.cfg.Density,
					MinSize:   s.cfg.MinSize,
					MaxSize:   s.cfg.MaxSize,
				})
				s.Adopt(bodies...)
				s.loaded[key] = struct{}{}

				st.ChunksGenerated++
				st.BodiesSpawned += len(bodies)
				s.bus.Publish(event.NewChunkEvent(event.ChunkGenerated, s, key.X, key.Y, key.Z, len(bodies)))
			}
		}
	}
}

func (s *Streamer) beyondRetire(k Key, pos mgl64.Vec3) bool {
	return k.Center(s.cfg.ChunkSize).Sub(pos).Len() > s.cfg.RetireDistance()
}

// retire drops every loaded chunk whose centre is beyond the retire distance
// and every registered body whose own cell is, loaded or not.
func (s *Streamer) retire(pos mgl64.Vec3, st *Stats) {
	far := func(k Key) bool { return s.beyondRetire(k, pos) }

	retiring := make(map[Key]int)
	for key := range s.loaded {
		if far(key) {
			retiring[key] = 0
		}
	}

	for id, body := range s.bodies {
		key := KeyFor(body.Position(), s.cfg.ChunkSize)
		if _, ok := retiring[key]; ok {
			retiring[key]++
		} else if !far(key) {
			continue
		}
		s.drop(id, body)
		st.BodiesRetired++
	}

	for key, count := range retiring {
		delete(s.loaded, key)
		st.ChunksRetired++
		s.bus.Publish(event.NewChunkEvent(event.ChunkRetired, s, key.X, key.Y, key.Z, count))
	}
}

func (s *Streamer) drop(id uint64, body *entity.CelestialBody) {
	if s.tracker != nil {
		s.tracker.Untrack(id)
	}
	body.Dispose()
	delete(s.bodies, id)
	s.bus.Publish(event.NewBodyEvent(event.BodyRetired, s, id, body.Position(), body.Size()))
}

// Adopt registers bodies created outside the chunk grid, such as the seed
// cluster. They retire with their own cell like generated bodies.
func (s *Streamer) Adopt(bodies ...*entity.CelestialBody) {
	for _, b := range bodies {
		if b == nil || b.Disposed() {
			continue
		}
		s.bodies[b.ID()] = b
		if s.tracker != nil {
			s.tracker.Track(b)
		}
	}
}

// Loaded returns the loaded keys in a stable order.
func (s *Streamer) Loaded() []Key {
	keys := make([]Key, 0, len(s.loaded))
	for k := range s.loaded {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// IsLoaded reports whether key is loaded.
func (s *Streamer) IsLoaded(key Key) bool {
	_, ok := s.loaded[key]
	return ok
}

// LoadedCount returns the number of loaded chunks.
func (s *Streamer) LoadedCount() int {
	return len(s.loaded)
}

// BodyCount returns the number of registered bodies.
func (s *Streamer) BodyCount() int {
	return len(s.bodies)
}

// Bodies returns the registered bodies ordered by id.
func (s *Streamer) Bodies() []*entity.CelestialBody {
	out := make([]*entity.CelestialBody, 0, len(s.bodies))
	for _, b := range s.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// LastUpdate returns the craft position of the last scan and whether a scan
// has happened.
func (s *Streamer) LastUpdate() (mgl64.Vec3, bool) {
	return s.last, s.hasUpdated
}

// Dispose retires every body and forgets every chunk. The next Update scans
// again.
func (s *Streamer) Dispose() {
	for id, body := range s.bodies {
		s.drop(id, body)
	}
	s.loaded = make(map[Key]struct{})
	s.hasUpdated = false
}
