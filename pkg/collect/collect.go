// Package collect keeps a fixed number of pickup boxes scattered around the
// origin and scores the ones the craft flies through.
package collect

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"github.com/opd-ai/go-spacefly/pkg/entity"
	"github.com/opd-ai/go-spacefly/pkg/event"
	"github.com/opd-ai/go-spacefly/pkg/logging"
	"github.com/opd-ai/go-spacefly/pkg/physics"
)

// Config controls the box field.
type Config struct {
	BoxCount           int     `json:"boxCount" yaml:"boxCount"`
	InitialArea        float64 `json:"initialArea" yaml:"initialArea"`
	RespawnArea        float64 `json:"respawnArea" yaml:"respawnArea"`
	CollectDistance    float64 `json:"collectDistance" yaml:"collectDistance"`
	MinRespawnDistance float64 `json:"minRespawnDistance" yaml:"minRespawnDistance"`
	MaxRespawnAttempts int     `json:"maxRespawnAttempts" yaml:"maxRespawnAttempts"`
	TargetScore        int     `json:"targetScore" yaml:"targetScore"`
}

// DefaultConfig returns the stock box field.
func DefaultConfig() Config {
	return Config{
		BoxCount:           100,
		InitialArea:        1000,
		RespawnArea:        2000,
		CollectDistance:    10,
		MinRespawnDistance: 100,
		MaxRespawnAttempts: 16,
		TargetScore:        3,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.BoxCount < 0 {
		errs = append(errs, fmt.Errorf("boxCount must not be negative, got %d", c.BoxCount))
	}
	if c.InitialArea <= 0 || c.RespawnArea <= 0 {
		errs = append(errs, fmt.Errorf("areas must be positive, got initial=%v respawn=%v", c.InitialArea, c.RespawnArea))
	}
	if c.CollectDistance < 0 {
		errs = append(errs, fmt.Errorf("collectDistance must not be negative, got %v", c.CollectDistance))
	}
	if c.MinRespawnDistance < c.CollectDistance {
		errs = append(errs, fmt.Errorf("minRespawnDistance %v must not be below collectDistance %v", c.MinRespawnDistance, c.CollectDistance))
	}
	if c.MaxRespawnAttempts < 1 {
		errs = append(errs, fmt.Errorf("maxRespawnAttempts must be positive, got %d", c.MaxRespawnAttempts))
	}
	if c.TargetScore < 0 {
		errs = append(errs, fmt.Errorf("targetScore must not be negative, got %d", c.TargetScore))
	}
	return errors.Join(errs...)
}

// Spawner creates boxes.
type Spawner interface {
	CreateCollectible(pos mgl64.Vec3) (*entity.Collectible, error)
}

// Options carries the optional collaborators of a Field.
type Options struct {
	Bus     *event.Bus
	Logger  *logging.Logger
	Rand    *rand.Rand
	Context context.Context
}

// Field owns the outstanding boxes and the score.
type Field struct {
	cfg     Config
	spawner Spawner
	bus     *event.Bus
	logger  *logging.Logger
	rng     *rand.Rand
	ctx     context.Context
	warn    rate.Sometimes

	boxes []*entity.Collectible
	score int
}

// NewField creates an empty field; call Populate to fill it.
func NewField(cfg Config, spawner Spawner, opts Options) *Field {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Field{
		cfg:     cfg,
		spawner: spawner,
		bus:     opts.Bus,
		logger:  logger.Component("collectibles"),
		rng:     rng,
		ctx:     ctx,
		warn:    rate.Sometimes{First: 1, Interval: time.Second},
	}
}

// Config returns the field settings.
func (f *Field) Config() Config {
	return f.cfg
}

// Populate spawns boxes inside the initial cube around the origin until
// BoxCount are outstanding.
func (f *Field) Populate() error {
	for len(f.boxes) < f.cfg.BoxCount {
		pos := cubePoint(f.rng, f.cfg.InitialArea)
		if err := f.spawn(pos); err != nil {
			return fmt.Errorf("populate collectibles: %w", err)
		}
	}
	return nil
}

// Update collects every box closer than CollectDistance to the craft,
// replaces it away from the craft and returns how many were collected.
func (f *Field) Update(craft mgl64.Vec3) int {
	limit := f.cfg.CollectDistance * f.cfg.CollectDistance

	collected := 0
	kept := f.boxes[:0]
	for _, box := range f.boxes {
		if physics.DistanceSquared(craft, box.Position()) >= limit {
			kept = append(kept, box)
			continue
		}
		box.Dispose()
		f.score++
		collected++
		f.bus.Publish(event.NewScoreEvent(event.CollectiblePicked, f, box.ID(), f.score, f.cfg.TargetScore))
	}
	for i := len(kept); i < len(f.boxes); i++ {
		f.boxes[i] = nil
	}
	f.boxes = kept

	for len(f.boxes) < f.cfg.BoxCount {
		if err := f.spawn(f.respawnPoint(craft)); err != nil {
			f.warn.Do(func() {
				f.logger.Error(f.ctx, "collectible respawn failed", err, "outstanding", len(f.boxes))
			})
			break
		}
	}
	return collected
}

func (f *Field) spawn(pos mgl64.Vec3) error {
	box, err := f.spawner.CreateCollectible(pos)
	if err != nil {
		return err
	}
	f.boxes = append(f.boxes, box)
	return nil
}

// respawnPoint draws from the respawn cube, rejecting points within
// MinRespawnDistance of the craft. When every attempt is rejected the last
// candidate is pushed out along the line from the craft.
func (f *Field) respawnPoint(craft mgl64.Vec3) mgl64.Vec3 {
	min := f.cfg.MinRespawnDistance
	var p mgl64.Vec3
	for i := 0; i < f.cfg.MaxRespawnAttempts; i++ {
		p = cubePoint(f.rng, f.cfg.RespawnArea)
		if p.Sub(craft).Len() > min {
			return p
		}
	}
	dir := p.Sub(craft)
	if dir.Len() == 0 {
		dir = physics.AxisRight
	}
	return craft.Add(physics.SafeNormalize(dir).Mul(min * 1.01))
}

// Len returns the number of outstanding boxes.
func (f *Field) Len() int {
	return len(f.boxes)
}

// Score returns the number of boxes collected so far.
func (f *Field) Score() int {
	return f.score
}

// Boxes returns the outstanding boxes. The slice must not be modified.
func (f *Field) Boxes() []*entity.Collectible {
	return f.boxes
}

// Dispose releases every outstanding box. The score is kept.
func (f *Field) Dispose() {
	for _, box := range f.boxes {
		box.Dispose()
	}
	f.boxes = nil
}

func cubePoint(rng *rand.Rand, side float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(rng.Float64() - 0.5) * side,
		(rng.Float64() - 0.5) * side,
		(rng.Float64() - 0.5) * side,
	}
}
