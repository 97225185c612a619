package supervisor

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/routeguard-io/routeguard/internal/core/domain"
	"github.com/routeguard-io/routeguard/internal/core/port/firewall"
	"github.com/routeguard-io/routeguard/internal/core/port/route"
	"github.com/routeguard-io/routeguard/pkg/logger"
)

// DefaultInterval is the route poll cadence when none is configured.
const DefaultInterval = 5 * time.Second

// AlertSink receives one event per suspicious route per poll cycle.
type AlertSink interface {
	LeakDetected(route domain.LeakRoute)
}

// Config selects the operating mode of a run.
type Config struct {
	Mode          string
	Interval      time.Duration
	CleanupOnExit bool
}

// Supervisor owns the run state machine. It starts the route watcher
// loop, installs the kill-switch table in protect mode, and guarantees
// teardown on every exit path: normal stop, signal, or fault.
type Supervisor struct {
	cfg    Config
	spec   domain.RulesetSpec
	fw     firewall.Controller
	routes route.Source
	sink   AlertSink

	state    domain.RunState
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, spec domain.RulesetSpec, fw firewall.Controller, routes route.Source, sink AlertSink) *Supervisor {
	if cfg.Interval < time.Second {
		cfg.Interval = DefaultInterval
	}
	return &Supervisor{
		cfg:    cfg,
		spec:   spec,
		fw:     fw,
		routes: routes,
		sink:   sink,
		state:  domain.StateIdle,
		stopCh: make(chan struct{}),
	}
}

// Stop requests termination. Safe to call more than once and from any
// goroutine; it interrupts the poll wait immediately.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// State returns the current lifecycle position. Only the Run goroutine
// transitions it.
func (s *Supervisor) State() domain.RunState {
	return s.state
}

func (s *Supervisor) transition(next domain.RunState) {
	logger.Log.Debugf("state %s -> %s", s.state, next)
	s.state = next
}

// Run blocks until a stop request, a termination signal, or a fatal
// install error. The deferred teardown runs on all of those paths and on
// panics; once the table was installed, removing it outranks any further
// error reporting.
func (s *Supervisor) Run() error {
	s.transition(domain.StateMonitoring)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(sigs)

	installed := false
	defer func() {
		s.transition(domain.StateTearingDown)
		if installed && s.cfg.CleanupOnExit {
			if err := s.fw.Teardown(); err != nil {
				logger.Log.Errorf("teardown failed, table may be stuck: %v", err)
			} else {
				logger.Log.Info("kill-switch table removed")
			}
		}
		s.transition(domain.StateStopped)
	}()

	if s.cfg.Mode == domain.ModeProtect {
		if err := s.fw.Install(s.spec); err != nil {
			return fmt.Errorf("refusing to run unprotected: %w", err)
		}
		installed = true
		s.transition(domain.StateEnforcing)
		logger.Log.Infof("kill-switch installed for interface %q (%d rules)", s.spec.TunnelInterface, len(s.spec.Rules))
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.cycle()

		select {
		case sig := <-sigs:
			logger.Log.Infof("signal [%s] received, stopping", sig)
			return nil
		case <-s.stopCh:
			logger.Log.Info("stop requested")
			return nil
		case <-ticker.C:
		}
	}
}

// cycle performs one poll: verify the table still exists while
// enforcing, then inspect the route table. Suspicious routes are alerted
// every cycle on purpose; a repeated warning signals an ongoing leak.
func (s *Supervisor) cycle() {
	if s.state == domain.StateEnforcing {
		ok, err := s.fw.IsInstalled()
		switch {
		case err != nil:
			logger.Log.Warnf("cannot verify kill-switch table: %v", err)
		case !ok:
			logger.Log.Warn("kill-switch table missing, re-applying")
			if err := s.fw.Install(s.spec); err != nil {
				logger.Log.Errorf("re-install failed: %v", err)
			}
		}
	}

	snapshot, err := s.routes.Snapshot()
	if err != nil {
		logger.Log.Warnf("skipping poll cycle: %v", err)
		return
	}

	for _, r := range snapshot {
		if !r.Suspicious {
			continue
		}
		logger.Log.Warnf("suspicious route: %s via dev=%s gateway=%s", r.Destination, r.OutInterface, orDash(r.Gateway))
		if s.sink != nil {
			s.sink.LeakDetected(r)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
