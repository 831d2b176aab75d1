// Package actor wires the tool-execution pipeline together: the event
// loop, the tab registry, the journal, site policy, the credential
// service, and per-task execution engines.
//
// Service is the delegate tools receive their environment through; it
// owns everything that outlives individual tool turns.
package actor

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/fatalapps/pageactor/pkg/actor/engine"
	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/login"
	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/metrics"
	"github.com/fatalapps/pageactor/pkg/actor/policy"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
	"github.com/fatalapps/pageactor/pkg/actor/tools"
	"github.com/fatalapps/pageactor/pkg/logging"
)

// Options configures a Service.
type Options struct {
	// Blocklist holds site-policy glob patterns.
	Blocklist []string

	// Credentials seeds the static credential service.
	Credentials []login.Credential

	// SettleDelay is the quiet period observation delayers append after
	// load; zero means the default.
	SettleDelay time.Duration

	// Metrics receives pipeline outcomes; nil disables recording.
	Metrics *metrics.Metrics
}

// Service is the pipeline's composition root and the tools.Delegate
// implementation handed to every tool.
type Service struct {
	loop        *loop.Loop
	registry    *tabs.Registry
	journal     *journal.Journal
	credentials login.CredentialService
	sitePolicy  *policy.SitePolicy
	settleDelay time.Duration
	metrics     *metrics.Metrics
	log         *logging.Logger

	tasks   map[task.ID]*task.ActorTask
	engines map[task.ID]*engine.Engine
}

// NewService builds a service from options.
func NewService(opts Options) (*Service, error) {
	sp, err := policy.New(opts.Blocklist)
	if err != nil {
		return nil, fmt.Errorf("failed to build site policy: %w", err)
	}
	l := loop.New()
	// NewLogger degrades to stderr on failure.
	lg, _ := logging.NewLogger("actor")
	return &Service{
		loop:        l,
		registry:    tabs.NewRegistry(),
		journal:     journal.New(),
		credentials: login.NewStaticService(l, opts.Credentials),
		sitePolicy:  sp,
		settleDelay: opts.SettleDelay,
		metrics:     opts.Metrics,
		log:         lg,
		tasks:       make(map[task.ID]*task.ActorTask),
		engines:     make(map[task.ID]*engine.Engine),
	}, nil
}

// Registry returns the tab registry.
func (s *Service) Registry() *tabs.Registry {
	return s.registry
}

// Journal returns the journal.
func (s *Service) Journal() *journal.Journal {
	return s.journal
}

// Loop returns the event loop.
func (s *Service) Loop() *loop.Loop {
	return s.loop
}

// CredentialService returns the credential service.
func (s *Service) CredentialService() login.CredentialService {
	return s.credentials
}

// SitePolicy returns the site-policy blocklist.
func (s *Service) SitePolicy() *policy.SitePolicy {
	return s.sitePolicy
}

// ObservationSettleDelay returns the configured settle delay.
func (s *Service) ObservationSettleDelay() time.Duration {
	return s.settleDelay
}

// CreateTask creates a task and its execution engine.
func (s *Service) CreateTask() (*task.ActorTask, *engine.Engine) {
	t := task.New(task.NewID(), s.loop)
	e := engine.New(t, s, s.metrics)
	s.tasks[t.ID()] = t
	s.engines[t.ID()] = e
	s.log.Infof("created task %s", t.ID())
	return t, e
}

// Task looks up a task by id.
func (s *Service) Task(id task.ID) (*task.ActorTask, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Engine looks up a task's engine.
func (s *Service) Engine(id task.ID) (*engine.Engine, bool) {
	e, ok := s.engines[id]
	return e, ok
}

// OpenBrowserWindow registers a window over a live playwright context.
func (s *Service) OpenBrowserWindow(bctx playwright.BrowserContext) *tabs.Window {
	w := s.registry.OpenWindow(bctx)
	s.log.Infof("opened browser window %d", w.Handle())
	return w
}

var _ tools.Delegate = (*Service)(nil)
