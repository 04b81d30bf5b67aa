package lifecycle

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTokenBuffer = 16
	defaultMaxTokens   = 256
)

// Config encapsulates all tunables for Controller construction.
type Config struct {
	Engine       engine.Engine
	Registry     []types.Model
	DefaultModel string
	// Model-level engine tunables.
	CtxSize int
	Threads int
	// Session parameter defaults; overridable per EnsureEngine call.
	Params engine.SessionParams
	// Stream channel buffer per generation.
	TokenBuffer int
	Publisher   EventPublisher
	Logger      zerolog.Logger
}

// Controller owns at most one model, one session, and one active generation.
// All shared state below mu is mutated only while holding it; the mutex is
// never held across an engine call.
type Controller struct {
	mu sync.Mutex

	eng     engine.Engine
	model   engine.Model
	session engine.Session
	modelID string

	active    *activeGeneration
	cancelled map[GenerationID]struct{}

	registry     []types.Model
	defaultModel string
	ctxSize      int
	threads      int
	params       engine.SessionParams
	tokenBuffer  int

	generations uint64
	resets      uint64

	pub       EventPublisher
	log       zerolog.Logger
	startTime time.Time
}

// New constructs a Controller from Config, applying package defaults.
func New(cfg Config) *Controller {
	c := &Controller{
		eng:          cfg.Engine,
		cancelled:    make(map[GenerationID]struct{}),
		registry:     cfg.Registry,
		defaultModel: cfg.DefaultModel,
		ctxSize:      cfg.CtxSize,
		threads:      cfg.Threads,
		params:       cfg.Params,
		tokenBuffer:  cfg.TokenBuffer,
		pub:          cfg.Publisher,
		log:          cfg.Logger,
		startTime:    time.Now(),
	}
	if c.tokenBuffer <= 0 {
		c.tokenBuffer = defaultTokenBuffer
	}
	if c.params.MaxTokens <= 0 {
		c.params.MaxTokens = defaultMaxTokens
	}
	if c.pub == nil {
		c.pub = noopPublisher{}
	}
	return c
}

// Ready reports whether a model and session are established.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model != nil && c.session != nil
}

// ListModels returns a copy of the model registry.
func (c *Controller) ListModels() []types.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Model, len(c.registry))
	copy(out, c.registry)
	return out
}

// modelByID finds a model in the registry by id.
func (c *Controller) modelByID(id string) (types.Model, bool) {
	for _, m := range c.registry {
		if m.ID == id {
			return m, true
		}
	}
	return types.Model{}, false
}
