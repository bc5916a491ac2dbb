package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"softphone/internal/audio"
	"softphone/internal/engine"
	"softphone/internal/journal"
	"softphone/internal/profile"
)

// EngineFactory builds an engine for a validated profile. Injected so tests
// and headless runs can supply the loopback engine.
type EngineFactory func(p profile.Profile) (engine.Engine, error)

// Manager is the call-session orchestrator: a single loop that owns the
// engine handle exclusively, multiplexes user commands against engine events,
// and publishes consistent state for presentation.
//
// Concurrency rules:
// - Fields below the "loop-owned" marker are touched only from Run's
//   goroutine. No other task calls the engine, ever.
// - Producers talk to the loop through the command mailbox; observers read
//   the published snapshot or a Watch subscription.
type Manager struct {
	log     *slog.Logger
	factory EngineFactory
	audio   audio.Controller
	journal *journal.Service

	cmds *mailbox
	pub  *published

	// loop-owned state
	eng         engine.Engine
	events      <-chan engine.Event
	prof        profile.Profile
	initialized bool
	call        *CallRecord
	onHook      bool
	reg         Registration
	lastError   string
}

func NewManager(log *slog.Logger, factory EngineFactory, audioCtl audio.Controller, jnl *journal.Service) *Manager {
	return &Manager{
		log:     log,
		factory: factory,
		audio:   audioCtl,
		journal: jnl,
		cmds:    newMailbox(),
		pub:     newPublished(),
		onHook:  true,
		reg:     Registration{State: RegStateIdle},
	}
}

/* ===================== OBSERVER SIDE ===================== */

// Snapshot returns the current published state.
func (m *Manager) Snapshot() Snapshot { return m.pub.load() }

// CallInfo returns the live call, if any. Pure read, no engine interaction.
func (m *Manager) CallInfo() *CallRecord { return m.pub.load().Call }

// RegistrationState returns the published registration cell.
func (m *Manager) RegistrationState() Registration { return m.pub.load().Registration }

// OnHook reports the published hook state.
func (m *Manager) OnHook() bool { return m.pub.load().OnHook }

// Watch subscribes to published snapshots, including the ~1 Hz duration
// ticks while a call is connected or held. Call cancel when done.
func (m *Manager) Watch() (<-chan Snapshot, func()) { return m.pub.watch() }

/* ===================== PRODUCER SIDE ===================== */

// Initialize tears down any previous session and brings the engine up for
// the given profile.
func (m *Manager) Initialize(ctx context.Context, p profile.Profile) error {
	return m.send(ctx, command{kind: cmdInitialize, profile: p})
}

// MakeCall places an outgoing call to target (formatted per the profile's
// connection mode).
func (m *Manager) MakeCall(ctx context.Context, target string) error {
	return m.send(ctx, command{kind: cmdMakeCall, target: target})
}

// Answer accepts the currently ringing incoming call.
func (m *Manager) Answer(ctx context.Context) error {
	return m.send(ctx, command{kind: cmdAnswer})
}

// Hangup ends the live call. The local record is always cleared, even when
// the engine-side hangup fails; stopping a call must never be blocked by a
// transient network failure.
func (m *Manager) Hangup(ctx context.Context) error {
	return m.send(ctx, command{kind: cmdHangup})
}

// ToggleMute flips the call's mute flag, reflecting the engine's
// authoritative post-toggle state.
func (m *Manager) ToggleMute(ctx context.Context) error {
	return m.send(ctx, command{kind: cmdToggleMute})
}

// Hold requests hold, or resume when the call is already held, so a single
// hold button stays unambiguous.
func (m *Manager) Hold(ctx context.Context) error {
	return m.send(ctx, command{kind: cmdHold})
}

// Resume is the explicit counterpart of Hold; it resolves against the
// current state the same way.
func (m *Manager) Resume(ctx context.Context) error {
	return m.send(ctx, command{kind: cmdResume})
}

// Transfer hands the live call to target. The record's state is left for the
// ensuing engine events to settle.
func (m *Manager) Transfer(ctx context.Context, target string) error {
	return m.send(ctx, command{kind: cmdTransfer, target: target})
}

// ToggleHook flips the hook switch. Going off-hook while an incoming call is
// ringing declines that call.
func (m *Manager) ToggleHook(ctx context.Context) error {
	return m.send(ctx, command{kind: cmdToggleHook})
}

func (m *Manager) send(ctx context.Context, c command) error {
	c.reply = make(chan error, 1)
	m.cmds.put(c)
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		// The command still executes in order; only the wait is abandoned.
		return ctx.Err()
	}
}

/* ===================== THE LOOP ===================== */

// Run processes exactly one command or one event per iteration until ctx is
// canceled. Commands keep submission order, events keep emission order, and
// neither side can starve the other: when both channels are ready Go's
// select picks uniformly.
func (m *Manager) Run(ctx context.Context) error {
	defer m.teardown()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.cmds.C():
			m.dispatch(ctx, cmd)
		case ev, ok := <-m.events:
			if !ok {
				// Engine went away underneath us; stop selecting on it.
				m.events = nil
				continue
			}
			m.handleEvent(ctx, ev)
			m.publish()
		case <-ticker.C:
			m.tickDuration()
		}
	}
}

// dispatch runs one command with per-iteration failure isolation: a panic in
// one handler becomes that command's error and the loop keeps serving.
func (m *Manager) dispatch(ctx context.Context, c command) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("session: %s failed: %v", c.kind, r)
				m.log.Error("command panicked", "command", string(c.kind), "panic", r)
			}
		}()
		err = m.handleCommand(ctx, c)
	}()

	if err != nil {
		m.lastError = err.Error()
		m.journal.Record(journal.KindError, m.callID(), fmt.Sprintf("%s: %v", c.kind, err))
		m.log.Warn("command failed", "command", string(c.kind), "err", err)
	} else {
		m.lastError = ""
	}

	m.publish()
	if c.reply != nil {
		c.reply <- err
	}
}

func (m *Manager) handleCommand(ctx context.Context, c command) error {
	if c.kind == cmdInitialize {
		return m.initialize(ctx, c.profile)
	}
	if !m.initialized {
		return ErrNotInitialized
	}

	switch c.kind {
	case cmdMakeCall:
		return m.makeCall(ctx, c.target)
	case cmdAnswer:
		return m.answer(ctx)
	case cmdHangup:
		return m.hangup(ctx)
	case cmdToggleMute:
		return m.toggleMute(ctx)
	case cmdHold, cmdResume:
		return m.toggleHold(ctx)
	case cmdTransfer:
		return m.transfer(ctx, c.target)
	case cmdToggleHook:
		return m.toggleHook(ctx)
	default:
		return fmt.Errorf("session: unknown command %q", c.kind)
	}
}

/* ===================== COMMAND HANDLERS ===================== */

func (m *Manager) initialize(ctx context.Context, p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	// Reconfigure replaces the session wholesale.
	m.closeEngine()
	m.initialized = false
	m.clearCall()
	m.onHook = true
	m.reg = Registration{State: RegStateIdle}

	eng, err := m.factory(p)
	if err != nil {
		m.reg = Registration{State: RegStateError, Message: err.Error()}
		return engineErr("initialize", err)
	}
	if err := eng.Start(ctx); err != nil {
		_ = eng.Close()
		m.reg = Registration{State: RegStateError, Message: err.Error()}
		return engineErr("start", err)
	}

	if p.RequiresRegistration() {
		reg, err := p.Registration()
		if err != nil {
			_ = eng.Close()
			m.reg = Registration{State: RegStateError, Message: err.Error()}
			return err
		}
		m.reg = Registration{State: RegStateRegistering}
		_, err = eng.Register(ctx, engine.RegisterRequest{
			ServerURI: reg.ServerURI,
			AOR:       reg.AOR,
			Contact:   reg.Contact,
			Username:  reg.Username,
			Password:  reg.Password,
			Expiry:    reg.Expiry,
		})
		if err != nil {
			_ = eng.Close()
			m.reg = Registration{State: RegStateError, Message: err.Error()}
			return engineErr("register", err)
		}
		// Registered only once the registrar confirms via event.
	} else {
		// Receiver and peer-to-peer sessions are ready without a registrar.
		m.reg = Registration{State: RegStateRegistered}
	}

	m.eng = eng
	m.events = eng.Events()
	m.prof = p
	m.initialized = true
	m.journal.Record(journal.KindRegistration, "", fmt.Sprintf("session initialized (%s mode)", p.Mode))
	return nil
}

func (m *Manager) makeCall(ctx context.Context, target string) error {
	if m.call != nil {
		return ErrAlreadyInCall
	}
	to, err := m.prof.FormatTarget(target)
	if err != nil {
		return err
	}
	id, err := m.eng.Place(ctx, m.prof.LocalURI(), to)
	if err != nil {
		return engineErr("place", err)
	}
	if id == "" {
		return ErrInvalidCallID
	}
	m.call = &CallRecord{ID: id, RemoteURI: to, State: CallStateCalling}
	m.audio.StartCallAudio(id)
	m.journal.Record(journal.KindCall, string(id), "outgoing call to "+to)
	return nil
}

func (m *Manager) answer(ctx context.Context) error {
	if m.call == nil || !m.call.IsIncoming {
		return ErrNoActiveCall
	}
	if err := m.eng.Answer(ctx, m.call.ID); err != nil {
		return engineErr("answer", err)
	}
	m.call.State = CallStateConnected
	m.stampConnected()
	m.audio.StartCallAudio(m.call.ID)
	m.journal.Record(journal.KindCall, string(m.call.ID), "call answered")
	return nil
}

func (m *Manager) hangup(ctx context.Context) error {
	if m.call == nil {
		return ErrNoActiveCall
	}
	id := m.call.ID
	if err := m.eng.Hangup(ctx, id); err != nil {
		// Hangup always completes locally; the user's intent to stop a call
		// must not hinge on the network.
		m.log.Warn("engine hangup failed, clearing locally", "call_id", string(id), "err", err)
		m.journal.Record(journal.KindError, string(id), "hangup: "+err.Error())
	}
	m.clearCall()
	m.journal.Record(journal.KindCall, string(id), "call ended (hangup)")
	return nil
}

func (m *Manager) toggleMute(ctx context.Context) error {
	if m.call == nil {
		return ErrNoActiveCall
	}
	id := m.call.ID
	cur, err := m.eng.IsMuted(ctx, id)
	if err != nil {
		return engineErr("is_muted", err)
	}
	if err := m.eng.SetMute(ctx, id, !cur); err != nil {
		return engineErr("set_mute", err)
	}
	// Read back rather than flipping blindly; the engine is authoritative.
	now, err := m.eng.IsMuted(ctx, id)
	if err != nil {
		return engineErr("is_muted", err)
	}
	m.call.Muted = now
	m.audio.SetMute(id, now)
	return nil
}

func (m *Manager) toggleHold(ctx context.Context) error {
	if m.call == nil {
		return ErrNoActiveCall
	}
	id := m.call.ID
	if m.call.State == CallStateOnHold {
		if err := m.eng.Resume(ctx, id); err != nil {
			return engineErr("resume", err)
		}
		// Optimistic; the CallResumed event is authoritative.
		m.call.State = CallStateConnected
		return nil
	}
	if err := m.eng.Hold(ctx, id); err != nil {
		return engineErr("hold", err)
	}
	// Optimistic; the CallOnHold event is authoritative.
	m.call.State = CallStateOnHold
	return nil
}

func (m *Manager) transfer(ctx context.Context, target string) error {
	if m.call == nil {
		return ErrNoActiveCall
	}
	to, err := m.prof.FormatTarget(target)
	if err != nil {
		return err
	}
	if err := m.eng.Transfer(ctx, m.call.ID, to); err != nil {
		return engineErr("transfer", err)
	}
	// State is left alone; the outcome arrives as events.
	m.journal.Record(journal.KindCall, string(m.call.ID), "transfer to "+to)
	return nil
}

func (m *Manager) toggleHook(ctx context.Context) error {
	m.onHook = !m.onHook
	m.journal.Record(journal.KindCommand, "", fmt.Sprintf("hook toggled (on_hook=%v)", m.onHook))

	// Going off-hook declines a pending ring.
	if !m.onHook && m.call != nil && m.call.IsIncoming && m.call.State == CallStateRinging {
		id := m.call.ID
		if err := m.eng.Hangup(ctx, id); err != nil {
			m.log.Warn("reject on off-hook failed", "call_id", string(id), "err", err)
		}
		m.clearCall()
		m.journal.Record(journal.KindCall, string(id), "incoming call declined (went off-hook)")
	}
	return nil
}

/* ===================== EVENT HANDLERS ===================== */

func (m *Manager) handleEvent(ctx context.Context, ev engine.Event) {
	switch ev.Type {
	case engine.EventIncomingCall:
		m.onIncomingCall(ctx, ev)
	case engine.EventCallStateChanged:
		m.onCallStateChanged(ev)
	case engine.EventCallEnded:
		if !m.matches(ev.CallID) {
			return
		}
		id := m.call.ID
		m.clearCall()
		m.journal.Record(journal.KindCall, string(id), "call ended (remote)")
	case engine.EventCallOnHold:
		// Authoritative confirmation for the optimistic hold update.
		if m.matches(ev.CallID) {
			m.call.State = CallStateOnHold
		}
	case engine.EventCallResumed:
		if m.matches(ev.CallID) {
			m.call.State = CallStateConnected
		}
	case engine.EventRegistrationStatus:
		m.onRegistrationStatus(ev)
	default:
		m.log.Warn("unhandled engine event", "type", string(ev.Type))
	}
	m.enforceHookPolicy()
}

func (m *Manager) onIncomingCall(ctx context.Context, ev engine.Event) {
	// Off-hook means auto-reject, and a second call while one is live is
	// rejected the same way: this endpoint carries a single call.
	if !m.onHook || m.call != nil {
		if err := m.eng.Reject(ctx, ev.CallID); err != nil {
			m.log.Warn("reject failed", "call_id", string(ev.CallID), "err", err)
		}
		m.journal.Record(journal.KindCall, string(ev.CallID), "incoming call from "+ev.From+" rejected")
		return
	}
	m.call = &CallRecord{
		ID:         ev.CallID,
		RemoteURI:  ev.From,
		State:      CallStateRinging,
		IsIncoming: true,
	}
	m.journal.Record(journal.KindCall, string(ev.CallID), "incoming call from "+ev.From)
}

func (m *Manager) onCallStateChanged(ev engine.Event) {
	if !m.matches(ev.CallID) {
		// Stale event for a call already cleared.
		return
	}
	mapped, ok := MapCallState(ev.State)
	if !ok {
		m.log.Error("unmapped engine call state", "state", string(ev.State), "call_id", string(ev.CallID))
		m.journal.Record(journal.KindError, string(ev.CallID), "unmapped engine call state "+string(ev.State))
		return
	}
	m.call.State = mapped
	if mapped == CallStateConnected {
		m.stampConnected()
	}
	if mapped == CallStateFailed && ev.Reason != "" {
		m.call.Reason = ev.Reason
	}
}

func (m *Manager) onRegistrationStatus(ev engine.Event) {
	mapped, ok := MapRegistrationStatus(ev.Registration)
	if !ok {
		m.log.Error("unmapped registration status", "status", string(ev.Registration))
		m.journal.Record(journal.KindError, "", "unmapped registration status "+string(ev.Registration))
		return
	}
	m.reg = Registration{State: mapped}
	if mapped == RegStateError {
		m.reg.Message = ev.Reason
	}
	m.journal.Record(journal.KindRegistration, "", "registration "+string(mapped))
}

/* ===================== INTERNAL ===================== */

// enforceHookPolicy forces the phone off-hook whenever the call is actively
// engaged. Runs within the same processing step as the transition, so
// observers never see an engaged call on-hook.
func (m *Manager) enforceHookPolicy() {
	if m.call != nil && m.call.State.Engaged() {
		m.onHook = false
	}
}

func (m *Manager) stampConnected() {
	if m.call != nil && m.call.ConnectedAt == nil {
		now := time.Now()
		m.call.ConnectedAt = &now
	}
}

func (m *Manager) clearCall() {
	if m.call == nil {
		return
	}
	m.audio.StopCallAudio(m.call.ID)
	m.call = nil
}

func (m *Manager) matches(id engine.CallID) bool {
	return m.call != nil && m.call.ID == id
}

func (m *Manager) callID() string {
	if m.call == nil {
		return ""
	}
	return string(m.call.ID)
}

// tickDuration republishes at ~1 Hz while the call accrues time, so elapsed
// displays stay live without observers polling.
func (m *Manager) tickDuration() {
	if m.call == nil || !m.call.State.Billable() {
		return
	}
	m.publish()
}

func (m *Manager) publish() {
	m.enforceHookPolicy()
	snap := Snapshot{
		Initialized:  m.initialized,
		Call:         m.call.clone(),
		Registration: m.reg,
		OnHook:       m.onHook,
		LastError:    m.lastError,
		At:           time.Now(),
	}
	if snap.Call != nil && snap.Call.ConnectedAt != nil {
		snap.Call.Duration = snap.At.Sub(*snap.Call.ConnectedAt)
	}
	m.pub.store(snap)
}

func (m *Manager) closeEngine() {
	if m.eng == nil {
		return
	}
	if err := m.eng.Close(); err != nil {
		m.log.Warn("engine close failed", "err", err)
	}
	m.eng = nil
	m.events = nil
}

func (m *Manager) teardown() {
	if m.call != nil {
		m.audio.StopCallAudio(m.call.ID)
	}
	m.closeEngine()
	m.cmds.close()
}
