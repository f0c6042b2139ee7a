package verifyclient

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the orchestrator's externally visible flow state.
type State string

const (
	StateIdle             State = "idle"
	StateStarting         State = "starting"
	StateAwaitingRedirect State = "awaiting_redirect"
	StatePolling          State = "polling"
	StateApproved         State = "approved"
	StateFailed           State = "failed"
	StateInstallRequired  State = "install_required"
	StateAbandoned        State = "abandoned"
)

// Done reports whether the flow has stopped driving itself. InstallRequired
// counts: the user has to install the app before Begin can be called again.
func (s State) Done() bool {
	switch s {
	case StateApproved, StateFailed, StateInstallRequired, StateAbandoned:
		return true
	}
	return false
}

// Navigator abstracts the embedding client's ability to open URLs and to
// observe whether it is still the foreground application. On web the
// Foregrounded check is meaningless and should return false.
type Navigator interface {
	Navigate(target string) error
	Foregrounded() bool
}

// Options tunes the flow. Zero values get sensible defaults.
type Options struct {
	Platform  string
	UserAgent string

	// FallbackScheme builds the second-stage mobile redirect when the
	// primary deep link did not move the user out of the portal app.
	FallbackScheme string
	// AppStoreURL is opened when both redirect stages fail. Optional; the
	// install_required state is surfaced either way.
	AppStoreURL string

	PollIntervalMobile time.Duration
	PollIntervalWeb    time.Duration
	// RedirectGrace is how long a mobile redirect gets to background the
	// portal before the next stage fires.
	RedirectGrace time.Duration
	// AbandonAfter bounds how long polling may run without reaching a
	// terminal status.
	AbandonAfter time.Duration

	OnStateChange func(State)
	// OnComplete fires exactly once per flow that reaches approval.
	OnComplete func()
	OnError    func(error)
}

const (
	defaultPollMobile    = 3 * time.Second
	defaultPollWeb       = 5 * time.Second
	defaultRedirectGrace = 2 * time.Second
	defaultAbandonAfter  = 10 * time.Minute

	// pollFailWarnStreak is how many consecutive poll failures are tolerated
	// before OnError surfaces a warning. Polling continues regardless.
	pollFailWarnStreak = 3
)

var errFlowInProgress = errors.New("verification flow already in progress")

// Orchestrator runs the client-side verification flow as a small state
// machine. All timer callbacks are guarded by a generation counter so a
// cancelled or restarted flow can never act on the new one.
type Orchestrator struct {
	api API
	nav Navigator
	opt Options

	mu        sync.Mutex
	state     State
	gen       int
	ctx       context.Context
	session   *StartSession
	startedAt time.Time
	timer     *time.Timer
	pollFails int
}

func NewOrchestrator(api API, nav Navigator, opt Options) *Orchestrator {
	if opt.Platform == "" {
		opt.Platform = PlatformWeb
	}
	if opt.PollIntervalMobile <= 0 {
		opt.PollIntervalMobile = defaultPollMobile
	}
	if opt.PollIntervalWeb <= 0 {
		opt.PollIntervalWeb = defaultPollWeb
	}
	if opt.RedirectGrace <= 0 {
		opt.RedirectGrace = defaultRedirectGrace
	}
	if opt.AbandonAfter <= 0 {
		opt.AbandonAfter = defaultAbandonAfter
	}
	return &Orchestrator{api: api, nav: nav, opt: opt, state: StateIdle}
}

// State returns the current flow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the active session, or nil before a successful start.
func (o *Orchestrator) Session() *StartSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Begin starts (or restarts) the verification flow. It is rejected while a
// flow is mid-flight; a finished flow may be restarted.
func (o *Orchestrator) Begin(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle && !o.state.Done() {
		o.mu.Unlock()
		return errFlowInProgress
	}
	o.invalidateLocked()
	gen := o.gen
	o.ctx = ctx
	o.session = nil
	o.startedAt = time.Now()
	o.pollFails = 0
	o.setStateLocked(StateStarting)
	o.mu.Unlock()

	session, err := o.startOnce(ctx)
	if err != nil {
		// A failed start is retryable: drop back to idle so the user can
		// trigger the flow again.
		o.revertIdle(gen)
		return err
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return nil
	}
	o.session = session
	o.mu.Unlock()

	if o.opt.Platform == PlatformMobile {
		o.redirectMobile(gen, session)
		return nil
	}

	if err := o.nav.Navigate(session.RedirectURL); err != nil {
		o.failIfCurrent(gen, err)
		return err
	}
	o.enterPolling(gen)
	return nil
}

// Resume re-enters polling for an already started session without another
// start call, e.g. when the portal is reopened mid-verification. Without a
// known session it behaves like Begin.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle && !o.state.Done() {
		o.mu.Unlock()
		return errFlowInProgress
	}
	if o.session == nil {
		o.mu.Unlock()
		return o.Begin(ctx)
	}
	o.invalidateLocked()
	gen := o.gen
	o.ctx = ctx
	o.startedAt = time.Now()
	o.pollFails = 0
	o.mu.Unlock()

	o.enterPolling(gen)
	return nil
}

// startOnce calls the portal, retrying once when the portal reports the
// provider as temporarily unavailable.
func (o *Orchestrator) startOnce(ctx context.Context) (*StartSession, error) {
	session, err := o.api.Start(ctx, o.opt.Platform, o.opt.UserAgent)
	if err == nil {
		return session, nil
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || !apiErr.Retryable() {
		return nil, err
	}
	return o.api.Start(ctx, o.opt.Platform, o.opt.UserAgent)
}

// redirectMobile drives the staged mobile handoff: primary deep link, grace
// period, custom-scheme fallback, grace period, install prompt.
func (o *Orchestrator) redirectMobile(gen int, session *StartSession) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.setStateLocked(StateAwaitingRedirect)
	o.mu.Unlock()

	if err := o.nav.Navigate(session.RedirectURL); err != nil {
		o.failIfCurrent(gen, err)
		return
	}

	o.scheduleAfter(gen, o.opt.RedirectGrace, func() {
		if !o.nav.Foregrounded() {
			// The app took over; polling picks up when the user returns,
			// and in the meantime catches webhook-applied progress.
			o.enterPolling(gen)
			return
		}
		o.redirectFallback(gen, session)
	})
}

func (o *Orchestrator) redirectFallback(gen int, session *StartSession) {
	fallback := o.fallbackURI(session)
	if fallback == "" {
		o.installRequired(gen)
		return
	}
	if err := o.nav.Navigate(fallback); err != nil {
		o.failIfCurrent(gen, err)
		return
	}

	o.scheduleAfter(gen, o.opt.RedirectGrace, func() {
		if !o.nav.Foregrounded() {
			o.enterPolling(gen)
			return
		}
		o.installRequired(gen)
	})
}

func (o *Orchestrator) fallbackURI(session *StartSession) string {
	if o.opt.FallbackScheme == "" {
		return ""
	}
	return o.opt.FallbackScheme + "://verify?session=" + session.ProviderSessionID
}

func (o *Orchestrator) installRequired(gen int) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.invalidateLocked()
	nextGen := o.gen
	o.setStateLocked(StateInstallRequired)
	o.mu.Unlock()

	if o.opt.AppStoreURL != "" {
		_ = o.nav.Navigate(o.opt.AppStoreURL)
	}

	// An unattended install prompt eventually deactivates itself; the remote
	// session stays resumable through a later Begin.
	o.scheduleAfter(nextGen, o.opt.AbandonAfter, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.gen != nextGen || o.state != StateInstallRequired {
			return
		}
		o.invalidateLocked()
		o.setStateLocked(StateIdle)
	})
}

// HandleReturn is called by the embedding client when the user comes back
// from the provider (app switch or browser redirect). It short-circuits any
// pending redirect stage and polls immediately.
func (o *Orchestrator) HandleReturn() {
	o.mu.Lock()
	if o.state != StateAwaitingRedirect && o.state != StatePolling {
		o.mu.Unlock()
		return
	}
	o.invalidateLocked()
	gen := o.gen
	o.setStateLocked(StatePolling)
	o.mu.Unlock()

	o.pollOnce(gen)
}

// Cancel stops the flow and discards all pending timers.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidateLocked()
	o.session = nil
	o.setStateLocked(StateIdle)
}

func (o *Orchestrator) enterPolling(gen int) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.setStateLocked(StatePolling)
	o.mu.Unlock()

	o.pollOnce(gen)
}

func (o *Orchestrator) pollOnce(gen int) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	ctx := o.ctx
	startedAt := o.startedAt
	o.mu.Unlock()

	status, err := o.api.Status(ctx)
	if err != nil {
		// Transient poll failures are absorbed; the stored status stays
		// authoritative and the next tick retries. A sustained streak is
		// worth a non-blocking warning.
		o.mu.Lock()
		o.pollFails++
		warn := o.pollFails == pollFailWarnStreak
		o.mu.Unlock()
		if warn {
			o.reportError(err)
		}
	} else {
		o.mu.Lock()
		o.pollFails = 0
		o.mu.Unlock()
		switch status {
		case "approved":
			o.finish(gen, StateApproved)
			return
		case "declined", "failed":
			o.finish(gen, StateFailed)
			return
		}
	}

	if time.Since(startedAt) >= o.opt.AbandonAfter {
		o.finish(gen, StateAbandoned)
		return
	}

	o.scheduleAfter(gen, o.pollInterval(), func() { o.pollOnce(gen) })
}

func (o *Orchestrator) pollInterval() time.Duration {
	if o.opt.Platform == PlatformMobile {
		return o.opt.PollIntervalMobile
	}
	return o.opt.PollIntervalWeb
}

func (o *Orchestrator) finish(gen int, final State) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.invalidateLocked()
	o.setStateLocked(final)
	o.mu.Unlock()

	// The generation guard above already makes this at-most-once per flow.
	if final == StateApproved {
		if cb := o.opt.OnComplete; cb != nil {
			go cb()
		}
	}
}

// revertIdle returns the flow to idle after a retryable failure. The session
// pointer is left untouched so a resumed flow can reuse it.
func (o *Orchestrator) revertIdle(gen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return
	}
	o.invalidateLocked()
	o.setStateLocked(StateIdle)
}

// failIfCurrent surfaces a fatal flow error unless the flow was already
// cancelled or restarted.
func (o *Orchestrator) failIfCurrent(gen int, err error) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.invalidateLocked()
	o.setStateLocked(StateFailed)
	o.mu.Unlock()

	o.reportError(err)
}

func (o *Orchestrator) scheduleAfter(gen int, d time.Duration, fn func()) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.timer = time.AfterFunc(d, fn)
	o.mu.Unlock()
}

// invalidateLocked bumps the generation and stops the pending timer. Callers
// must hold the mutex.
func (o *Orchestrator) invalidateLocked() {
	o.gen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) setStateLocked(next State) {
	if o.state == next {
		return
	}
	o.state = next
	if cb := o.opt.OnStateChange; cb != nil {
		go cb(next)
	}
}

func (o *Orchestrator) reportError(err error) {
	if cb := o.opt.OnError; cb != nil {
		go cb(err)
	}
}
