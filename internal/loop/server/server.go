package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/tomz197/ciphertower/internal/auth"
	"github.com/tomz197/ciphertower/internal/cipher"
	"github.com/tomz197/ciphertower/internal/economy"
	"github.com/tomz197/ciphertower/internal/ledger"
	"github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/object"
	"github.com/tomz197/ciphertower/internal/tower"
)

var (
	// ErrServiceUnavailable is returned when the backing ledger cannot be
	// resolved or reports itself closed.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrWaveActive is returned when starting a wave while another runs.
	ErrWaveActive = errors.New("another wave is in progress")
	// ErrWaveNotPending is returned when starting a wave that already ran.
	ErrWaveNotPending = errors.New("wave already started")
	// ErrUnknownWave is returned for a wave number outside 1..N.
	ErrUnknownWave = errors.New("unknown wave")
	// ErrWrongPhase is returned when an operation is not allowed in the
	// current game phase.
	ErrWrongPhase = errors.New("not allowed in current phase")
	// ErrSuperseded is returned by DecryptWaveData when a newer request
	// replaced it before it finished. Its results were discarded.
	ErrSuperseded = errors.New("decrypt request superseded")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("engine closed")
)

// GameServer is the interface presentation clients use to drive a game.
// Decouples the console and spectators from the concrete Engine.
type GameServer interface {
	ShowTutorial() error
	DismissTutorial() error
	StartGame() error
	StartWave(ctx context.Context, n int) error
	CheckDefeat() bool
	DecryptWaveData(ctx context.Context, n int) (Intel, error)
	PlaceTower(cell object.Cell, kind object.TowerKind) (object.Tower, error)
	UpgradeTower(id int) (object.Tower, error)
	SellTower(id int) (float64, error)
	Connect() error
	Disconnect()
	Snapshot() *Snapshot
	Subscribe() (<-chan Event, func())
}

// Compile-time check that Engine implements GameServer.
var _ GameServer = (*Engine)(nil)

// Clock returns the current time.
type Clock func() time.Time

// Connector is implemented by signers that can be connected and
// disconnected at runtime.
type Connector interface {
	Connect() error
	Disconnect()
}

// Options configures an Engine. Nil collaborators get defaults; numeric
// game parameters left at zero use the values in the config package.
// AuthLatency is used as is, so zero means no artificial delay.
type Options struct {
	Scheme    cipher.Scheme
	Signer    auth.Signer
	Ledger    ledger.Ledger
	Clock     Clock
	Rand      object.Rand
	Seed      int64 // Used when Rand is nil; 0 seeds from the clock
	Scheduler Scheduler
	Logger    *log.Logger

	AuthLatency   time.Duration
	SignLimiter   *rate.Limiter
	TickInterval  time.Duration
	Waves         int
	StartingGold  float64
	StartingLives int
	PublicKey     string // Preset key material; generated at Init when empty
	Combat        bool   // Let towers fire at enemies each tick
}

// Engine owns one game: wave lifecycle, authorization-gated decryption,
// the movement tick and tower economy. All mutations are serialized by mu;
// observers read the latest Snapshot without locking.
type Engine struct {
	opts Options
	log  *log.Logger

	mu      sync.Mutex
	phase   Phase
	outcome Outcome
	eco     *economy.Economy
	towers  *tower.Manager
	gen     *object.WaveGenerator
	authz   *auth.Authorizer
	actx    auth.Context
	waves   []*object.Wave
	current int
	ticks   uint64
	task    *tickTask
	combat  *combat // nil unless Options.Combat
	closed  bool

	// Decrypt bookkeeping. selected is the wave whose intel is shown and
	// decryptSeq identifies the newest request; results carrying an older
	// sequence are discarded.
	intel      map[int]*Intel
	selected   int
	decryptSeq uint64

	snapshot atomic.Pointer[Snapshot]

	pending []Event // Queued until the next publish

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// tickTask is the periodic movement task of one wave.
type tickTask struct {
	wave int
	stop func()
}

// New creates an engine in the Loading phase.
func New(opts Options) *Engine {
	if opts.Scheme == nil {
		opts.Scheme = cipher.Tagged{}
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.NewLocal("ciphertower", ledger.DefaultNetwork)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = object.NewPRNG(opts.Seed)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = config.TickInterval
	}
	if opts.Waves <= 0 {
		opts.Waves = config.WaveCount
	}
	if opts.StartingGold <= 0 {
		opts.StartingGold = config.StartingGold
	}
	if opts.StartingLives <= 0 {
		opts.StartingLives = config.StartingLives
	}

	eco := economy.New(opts.StartingGold, opts.StartingLives)
	authz := auth.NewAuthorizer(opts.Scheme, opts.AuthLatency)
	authz.Limiter = opts.SignLimiter

	e := &Engine{
		opts:   opts,
		log:    opts.Logger,
		phase:  PhaseLoading,
		eco:    eco,
		towers: tower.NewManager(eco),
		gen:    object.NewWaveGenerator(opts.Scheme, opts.Rand),
		authz:  authz,
		intel:  make(map[int]*Intel),
		subs:   make(map[int]chan Event),
	}
	if opts.Combat {
		e.combat = newCombat()
	}
	e.publishLocked()
	return e
}

// Init builds the authorization context from the ledger, the clock and
// fresh key material, then moves to the start screen. Ledger lookup
// failures are logged and leave the corresponding fields empty.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	if err := e.checkPhaseLocked(PhaseLoading); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	target, err := e.opts.Ledger.Target(ctx)
	if err != nil {
		e.log.Warn("ledger target lookup failed", "err", err)
		target = ""
	}
	network, err := e.opts.Ledger.Network(ctx)
	if err != nil {
		e.log.Warn("ledger network lookup failed", "err", err)
		network = 0
	}
	pk := e.opts.PublicKey
	if pk == "" {
		if pk, err = auth.NewPublicKey(config.PublicKeyHexChars); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhaseLoading); err != nil {
		return err
	}
	e.actx = auth.Context{
		PublicKey: pk,
		Target:    target,
		Network:   network,
		Start:     e.opts.Clock(),
		Duration:  config.AuthValidity,
	}
	e.log.Debug("authorization context ready", "target", target, "network", network)
	e.setPhaseLocked(PhaseNotStarted)
	e.publishLocked()
	return nil
}

// AuthContext returns the authorization context built by Init.
func (e *Engine) AuthContext() auth.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actx
}

// ShowTutorial opens the tutorial over the start screen.
func (e *Engine) ShowTutorial() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhaseNotStarted); err != nil {
		return err
	}
	e.setPhaseLocked(PhaseTutorial)
	e.publishLocked()
	return nil
}

// DismissTutorial returns from the tutorial to the start screen.
func (e *Engine) DismissTutorial() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhaseTutorial); err != nil {
		return err
	}
	e.setPhaseLocked(PhaseNotStarted)
	e.publishLocked()
	return nil
}

// StartGame resets the economy, towers, waves and intel and enters the
// Playing phase. Allowed from the start screen and after a game ended.
func (e *Engine) StartGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhaseNotStarted, PhaseOver); err != nil {
		return err
	}

	e.stopTaskLocked()
	e.eco.Reset(e.opts.StartingGold, e.opts.StartingLives)
	e.towers.Reset()
	e.waves = e.gen.Generate(e.opts.Waves)
	e.current = 0
	e.ticks = 0
	e.outcome = OutcomeNone
	e.intel = make(map[int]*Intel)
	e.selected = 0
	e.decryptSeq++ // Orphan decrypts still in flight from a previous game

	e.log.Info("game started", "waves", len(e.waves), "gold", e.eco.Gold(), "lives", e.eco.Lives())
	e.setPhaseLocked(PhasePlaying)
	e.publishLocked()
	return nil
}

// StartWave spawns wave n and starts its movement tick. The signer must
// be connected, the ledger available, no other wave active and wave n
// still pending. On failure nothing changes.
func (e *Engine) StartWave(ctx context.Context, n int) error {
	e.mu.Lock()
	err := e.canStartWaveLocked(n)
	signer := e.opts.Signer
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if signer == nil || !signer.Connected() {
		return fmt.Errorf("%w: no connected identity", auth.ErrAuthorizationDenied)
	}
	target, err := e.opts.Ledger.Target(ctx)
	if err != nil {
		return fmt.Errorf("%w: resolve target: %w", ErrServiceUnavailable, err)
	}
	available, err := e.opts.Ledger.Available(ctx)
	if err != nil {
		return fmt.Errorf("%w: query availability: %w", ErrServiceUnavailable, err)
	}
	if !available {
		return fmt.Errorf("%w: ledger %s is closed", ErrServiceUnavailable, target)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// The lock was released for the lookups, so check again.
	if err := e.canStartWaveLocked(n); err != nil {
		return err
	}

	w := e.waves[n-1]
	w.Enemies = e.gen.Spawn(n)
	w.Status = object.WaveActive
	e.current = n

	task := &tickTask{wave: n}
	task.stop = e.opts.Scheduler.Every(e.opts.TickInterval, func() { e.tick(task) })
	e.task = task

	e.log.Info("wave started", "wave", n, "enemies", len(w.Enemies), "target", target)
	e.queueLocked(Event{Type: EventWaveStarted, Wave: n, Count: len(w.Enemies)})
	e.publishLocked()
	return nil
}

func (e *Engine) canStartWaveLocked(n int) error {
	if err := e.checkPhaseLocked(PhasePlaying); err != nil {
		return err
	}
	if n < 1 || n > len(e.waves) {
		return fmt.Errorf("%w: %d", ErrUnknownWave, n)
	}
	for _, w := range e.waves {
		if w.IsActive() {
			return fmt.Errorf("%w: wave %d", ErrWaveActive, w.Number)
		}
	}
	if s := e.waves[n-1].Status; s != object.WavePending {
		return fmt.Errorf("%w: wave %d is %s", ErrWaveNotPending, n, s)
	}
	return nil
}

// tick advances the wave owned by task by one step. Ticks from a task
// that has been replaced or stopped are ignored.
func (e *Engine) tick(task *tickTask) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task != task {
		return
	}
	w := e.waves[task.wave-1]
	e.ticks++

	var events []Event
	if e.combat != nil {
		var killed int
		w.Enemies, killed = e.combat.resolve(e.towers.List(), w.Enemies)
		if killed > 0 {
			events = append(events, Event{Type: EventEnemiesDestroyed, Wave: w.Number, Count: killed})
		}
	}

	leaked := 0
	remaining := w.Enemies[:0]
	for _, en := range w.Enemies {
		if en.Advance() {
			e.eco.PenalizeLife(config.LeakPenalty)
			leaked++
			continue
		}
		remaining = append(remaining, en)
	}
	w.Enemies = remaining
	if leaked > 0 {
		e.log.Debug("enemies leaked", "wave", w.Number, "count", leaked, "lives", e.eco.Lives())
		events = append(events, Event{Type: EventEnemiesLeaked, Wave: w.Number, Count: leaked})
	}
	events = append(events, Event{Type: EventTick, Wave: w.Number, Count: len(w.Enemies)})
	e.queueLocked(events...)

	if len(w.Enemies) == 0 {
		e.finishWaveLocked(w)
	}
	e.publishLocked()
}

// finishWaveLocked completes w, pays the clear bonus and either advances
// to the lowest pending wave or, once no wave is pending, ends the game.
func (e *Engine) finishWaveLocked(w *object.Wave) {
	e.stopTaskLocked()
	w.Status = object.WaveCompleted
	w.Enemies = []*object.Enemy{}
	e.eco.Credit(config.WaveClearBonus)
	e.log.Info("wave completed", "wave", w.Number, "gold", e.eco.Gold(), "lives", e.eco.Lives())
	e.queueLocked(Event{Type: EventWaveCompleted, Wave: w.Number, Gold: config.WaveClearBonus})

	if next := e.nextPendingLocked(); next > 0 {
		e.current = next
		return
	}
	if e.eco.Lives() > 0 {
		e.endGameLocked(OutcomeVictory)
	} else {
		e.endGameLocked(OutcomeDefeat)
	}
}

// CheckDefeat ends the game with a defeat when lives have run out. It is
// the boundary check callers run after observing a change; the tick itself
// never declares defeat mid-wave. Reports whether the game ended.
func (e *Engine) CheckDefeat() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || e.eco.Lives() > 0 {
		return false
	}
	e.stopTaskLocked()
	e.endGameLocked(OutcomeDefeat)
	e.publishLocked()
	return true
}

func (e *Engine) endGameLocked(outcome Outcome) {
	e.outcome = outcome
	e.log.Info("game over", "outcome", outcome, "completed", e.completedLocked(), "lives", e.eco.Lives())
	e.setPhaseLocked(PhaseOver)
	e.queueLocked(Event{Type: EventGameOver, Outcome: outcome})
}

// nextPendingLocked returns the lowest pending wave number, 0 if none.
func (e *Engine) nextPendingLocked() int {
	for _, w := range e.waves {
		if w.Status == object.WavePending {
			return w.Number
		}
	}
	return 0
}

func (e *Engine) completedLocked() int {
	n := 0
	for _, w := range e.waves {
		if w.Status == object.WaveCompleted {
			n++
		}
	}
	return n
}

// DecryptWaveData selects wave n and decrypts its path descriptor and then
// its composition descriptor, each behind its own authorization. The
// returned error joins the per-descriptor failures; the returned Intel
// holds whatever was revealed. If another decrypt request starts before
// this one finishes, its results are discarded and ErrSuperseded is
// returned.
func (e *Engine) DecryptWaveData(ctx context.Context, n int) (Intel, error) {
	e.mu.Lock()
	if err := e.checkPhaseLocked(PhasePlaying); err != nil {
		e.mu.Unlock()
		return Intel{}, err
	}
	if n < 1 || n > len(e.waves) {
		e.mu.Unlock()
		return Intel{}, fmt.Errorf("%w: %d", ErrUnknownWave, n)
	}
	e.decryptSeq++
	seq := e.decryptSeq
	e.selected = n
	for k, in := range e.intel {
		if in.Decrypting {
			// Owned by a request this one supersedes
			delete(e.intel, k)
		}
	}
	e.intel[n] = &Intel{Wave: n, Decrypting: true}
	w := e.waves[n-1]
	pathCT, compCT := w.EncodedPath, w.EncodedComposition
	actx, signer := e.actx, e.opts.Signer
	e.queueLocked(Event{Type: EventIntelUpdated, Wave: n})
	e.publishLocked()
	e.mu.Unlock()

	var pathErr error
	var path []object.Cell
	if _, err := e.authz.DecryptGated(ctx, pathCT, actx, signer); err != nil {
		pathErr = fmt.Errorf("decrypt path of wave %d: %w", n, err)
	} else {
		path = object.Route()
	}
	if !e.applyIntel(seq, n, func(in *Intel) { in.Path = path }) {
		return Intel{}, ErrSuperseded
	}

	var compErr error
	var composition []object.EnemyKind
	if _, err := e.authz.DecryptGated(ctx, compCT, actx, signer); err != nil {
		compErr = fmt.Errorf("decrypt composition of wave %d: %w", n, err)
	} else {
		composition = e.gen.SampleComposition(object.EnemyCount(n - 1))
	}

	err := errors.Join(pathErr, compErr)
	var result Intel
	ok := e.applyIntel(seq, n, func(in *Intel) {
		in.Composition = composition
		in.Decrypting = false
		if err != nil {
			in.Err = err.Error()
		}
		result = in.clone()
	})
	if !ok {
		return Intel{}, ErrSuperseded
	}
	if err != nil {
		e.log.Warn("wave decrypt failed", "wave", n, "err", err)
	} else {
		e.log.Info("wave decrypted", "wave", n, "enemies", len(composition))
	}
	return result, err
}

// applyIntel runs fn on wave n's intel if request seq is still the newest
// one and n is still selected.
func (e *Engine) applyIntel(seq uint64, n int, fn func(*Intel)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || seq != e.decryptSeq || e.selected != n {
		return false
	}
	in, ok := e.intel[n]
	if !ok {
		return false
	}
	fn(in)
	e.queueLocked(Event{Type: EventIntelUpdated, Wave: n})
	e.publishLocked()
	return true
}

// PlaceTower builds a tower of kind on cell.
func (e *Engine) PlaceTower(cell object.Cell, kind object.TowerKind) (object.Tower, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhasePlaying); err != nil {
		return object.Tower{}, err
	}
	t, err := e.towers.Place(cell, kind)
	if err != nil {
		return object.Tower{}, err
	}
	e.log.Debug("tower placed", "id", t.ID, "kind", t.Kind, "cell", t.Cell, "gold", e.eco.Gold())
	e.queueLocked(Event{Type: EventTowerPlaced, Tower: t.ID, Gold: -t.Cost})
	e.publishLocked()
	return t, nil
}

// UpgradeTower raises tower id by one level.
func (e *Engine) UpgradeTower(id int) (object.Tower, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhasePlaying); err != nil {
		return object.Tower{}, err
	}
	before, _ := e.towers.Get(id)
	t, err := e.towers.Upgrade(id)
	if err != nil {
		return object.Tower{}, err
	}
	e.log.Debug("tower upgraded", "id", t.ID, "level", t.Level, "gold", e.eco.Gold())
	e.queueLocked(Event{Type: EventTowerUpgraded, Tower: t.ID, Gold: -tower.UpgradePrice(before)})
	e.publishLocked()
	return t, nil
}

// SellTower removes tower id and returns the refund.
func (e *Engine) SellTower(id int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkPhaseLocked(PhasePlaying); err != nil {
		return 0, err
	}
	refund, err := e.towers.Sell(id)
	if err != nil {
		return 0, err
	}
	e.log.Debug("tower sold", "id", id, "refund", refund, "gold", e.eco.Gold())
	e.queueLocked(Event{Type: EventTowerSold, Tower: id, Gold: refund})
	e.publishLocked()
	return refund, nil
}

// Connect connects the signer if it supports runtime connection.
func (e *Engine) Connect() error {
	c, ok := e.opts.Signer.(Connector)
	if !ok {
		if e.opts.Signer != nil && e.opts.Signer.Connected() {
			return nil
		}
		return fmt.Errorf("%w: identity cannot be connected", auth.ErrAuthorizationDenied)
	}
	if err := c.Connect(); err != nil {
		return err
	}
	e.identityChanged()
	return nil
}

// Disconnect disconnects the signer if it supports runtime connection.
func (e *Engine) Disconnect() {
	if c, ok := e.opts.Signer.(Connector); ok {
		c.Disconnect()
		e.identityChanged()
	}
}

func (e *Engine) identityChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queueLocked(Event{Type: EventIdentityChanged})
	e.publishLocked()
}

// Close ends the session: the active tick is stopped, in-flight decrypts
// are orphaned and subscriber channels are closed. Safe to call twice.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTaskLocked()
	e.decryptSeq++
	e.mu.Unlock()
	e.closeSubscribers()
}

func (e *Engine) stopTaskLocked() {
	if e.task != nil {
		e.task.stop()
		e.task = nil
	}
}

func (e *Engine) setPhaseLocked(p Phase) {
	if e.phase == p {
		return
	}
	e.phase = p
	e.queueLocked(Event{Type: EventPhaseChanged, Phase: p, Outcome: e.outcome})
}

func (e *Engine) checkPhaseLocked(allowed ...Phase) error {
	if e.closed {
		return ErrClosed
	}
	for _, p := range allowed {
		if e.phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: game is %s", ErrWrongPhase, e.phase)
}

// publishLocked stores a deep copy of the current state for observers.
func (e *Engine) publishLocked() {
	s := &Snapshot{
		Phase:       e.phase,
		Outcome:     e.outcome,
		Gold:        e.eco.Gold(),
		Lives:       e.eco.Lives(),
		CurrentWave: e.current,
		Towers:      e.towers.List(),
		Waves:       make([]object.Wave, len(e.waves)),
		Intel:       make(map[int]Intel, len(e.intel)),
		Selected:    e.selected,
		Connected:   e.opts.Signer != nil && e.opts.Signer.Connected(),
		Ticks:       e.ticks,
	}
	for i, w := range e.waves {
		s.Waves[i] = w.Clone()
	}
	for n, in := range e.intel {
		s.Intel[n] = in.clone()
	}
	e.snapshot.Store(s)

	if len(e.pending) > 0 {
		e.emit(e.pending...)
		e.pending = e.pending[:0]
	}
}

// queueLocked schedules ev for delivery once the state it describes has
// been published.
func (e *Engine) queueLocked(ev ...Event) {
	e.pending = append(e.pending, ev...)
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Phase returns the current game phase.
func (e *Engine) Phase() Phase { return e.Snapshot().Phase }

// Outcome returns the verdict of a finished game.
func (e *Engine) Outcome() Outcome { return e.Snapshot().Outcome }

// Gold returns the current gold.
func (e *Engine) Gold() float64 { return e.Snapshot().Gold }

// Lives returns the remaining lives.
func (e *Engine) Lives() int { return e.Snapshot().Lives }

// CurrentWave returns the number of the wave in progress or next up.
func (e *Engine) CurrentWave() int { return e.Snapshot().CurrentWave }

// Towers returns the placed towers in placement order.
func (e *Engine) Towers() []object.Tower { return e.Snapshot().Towers }

// Waves returns every wave of the current game.
func (e *Engine) Waves() []object.Wave { return e.Snapshot().Waves }

// Intel returns what has been decrypted about wave n.
func (e *Engine) Intel(n int) (Intel, bool) {
	in, ok := e.Snapshot().Intel[n]
	return in, ok
}
