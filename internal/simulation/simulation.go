// Package simulation drives several otsync clients against the in-memory hub with
// randomized edits, rejections and connection drops, then checks that every replica
// converged on the server document.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/aretw0/otsync"
	"github.com/aretw0/otsync/internal/logging"
	"github.com/aretw0/otsync/pkg/adapters/memory"
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/aretw0/otsync/pkg/reconnect"
)

// ErrNoProgress is returned when the drain phase stops making progress.
var ErrNoProgress = errors.New("simulation stopped making progress")

// maxDrainRounds bounds the final drain. Each round either empties a queue or
// promotes a buffer, so a healthy run needs about two rounds per client.
const maxDrainRounds = 1000

// Config describes one run.
type Config struct {
	Clients    int
	Edits      int
	Seed       int64
	DropRate   float64 // Chance per step that an online client loses its connection
	RejectRate float64 // Chance that the hub rolls back an otherwise valid submission
	DocumentID string
	Initial    string
}

// Simulator runs simulations. The zero value is not usable; call New.
type Simulator struct {
	logger    *slog.Logger
	hooks     func(client string) domain.LifecycleHooks
	modifiers []ports.Modifier
	store     ports.SnapshotStore
	status    func(client string) ports.StatusStore
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger shared by the hub and every client.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithHooks attaches extra lifecycle hooks to each client, e.g. metrics.
func WithHooks(fn func(client string) domain.LifecycleHooks) Option {
	return func(s *Simulator) {
		s.hooks = fn
	}
}

// WithModifiers installs outgoing modifiers on every client.
// Modifiers that add attributes make replicas differ from the server in formatting,
// which the report records as Identical=false.
func WithModifiers(mods ...ports.Modifier) Option {
	return func(s *Simulator) {
		s.modifiers = append(s.modifiers, mods...)
	}
}

// WithSnapshotStore makes the hub persist snapshots to store.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(s *Simulator) {
		s.store = store
	}
}

// WithStatus mirrors each client's connectivity banners to an extra status store.
func WithStatus(fn func(client string) ports.StatusStore) Option {
	return func(s *Simulator) {
		s.status = fn
	}
}

// New creates a simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

type replica struct {
	name   string
	editor *memory.Editor
	conn   *memory.Conn
	client *otsync.Client
	coord  *reconnect.Coordinator
	stats  ClientReport
}

type run struct {
	*Simulator
	cfg      Config
	rng      *rand.Rand
	hub      *memory.Hub
	replicas []*replica
	report   *Report
}

// Run executes cfg and returns its report. The error covers infrastructure failures;
// divergence is reported through Report.Converged.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Clients < 1 {
		return nil, fmt.Errorf("need at least one client, got %d", cfg.Clients)
	}
	if cfg.DocumentID == "" {
		cfg.DocumentID = "simulation"
	}
	text := cfg.Initial
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	initial := delta.FromText(text, nil)

	r := &run{
		Simulator: s,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1|1)),
		report:    &Report{Seed: cfg.Seed},
	}

	hubOpts := []memory.HubOption{
		memory.WithLogger(s.logger),
		memory.WithRejectFunc(func(memory.Submission) bool {
			return cfg.RejectRate > 0 && r.rng.Float64() < cfg.RejectRate
		}),
	}
	if s.store != nil {
		hubOpts = append(hubOpts, memory.WithSnapshotStore(s.store))
	}
	r.hub = memory.NewHub(hubOpts...)
	if err := r.hub.CreateDocument(cfg.DocumentID, initial, 0); err != nil {
		return nil, err
	}

	for i := range cfg.Clients {
		rep, err := r.join(fmt.Sprintf("client-%d", i+1), initial)
		if err != nil {
			return nil, err
		}
		r.replicas = append(r.replicas, rep)
	}
	defer func() {
		for _, rep := range r.replicas {
			rep.client.Close()
		}
	}()

	if err := r.churn(ctx); err != nil {
		return r.report, err
	}
	if err := r.drain(ctx); err != nil {
		return r.report, err
	}
	return r.finish(ctx)
}

func (r *run) join(name string, initial delta.Delta) (*replica, error) {
	editor := memory.NewEditor(initial)
	conn, err := r.hub.Connect(r.cfg.DocumentID, name)
	if err != nil {
		return nil, err
	}
	rep := &replica{name: name, editor: editor, conn: conn}
	rep.stats.Name = name

	opts := []otsync.Option{
		otsync.WithLogger(r.logger.With("client", name)),
		otsync.WithLifecycleHooks(rep.counters()),
		otsync.WithModifiers(r.modifiers...),
	}
	if r.hooks != nil {
		opts = append(opts, otsync.WithLifecycleHooks(r.hooks(name)))
	}
	client, err := otsync.New(0, conn, editor, opts...)
	if err != nil {
		return nil, err
	}
	rep.client = client
	var status ports.StatusStore = memory.NewStatus(editor)
	if r.status != nil {
		status = fanout{status, r.status(name)}
	}
	rep.coord = reconnect.New(r.cfg.DocumentID, client, editor, r.hub, status,
		reconnect.WithLogger(r.logger.With("client", name)))
	conn.Observe(rep.coord)
	return rep, nil
}

type fanout []ports.StatusStore

func (f fanout) SetBanner(ctx context.Context, kind ports.BannerKind, message string) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SetBanner(ctx, kind, message))
	}
	return errors.Join(errs...)
}

func (f fanout) SetReadOnly(ctx context.Context, readOnly bool) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SetReadOnly(ctx, readOnly))
	}
	return errors.Join(errs...)
}

func (rep *replica) counters() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSend:            func(*domain.OperationEvent) { rep.stats.Sent++ },
		OnAck:             func(*domain.OperationEvent) { rep.stats.Acks++ },
		OnRemoteOperation: func(*domain.OperationEvent) { rep.stats.Remote++ },
		OnRollback:        func(*domain.OperationEvent) { rep.stats.Rollbacks++ },
		OnReset:           func(*domain.OperationEvent) { rep.stats.Resets++ },
		OnApplyError:      func(*domain.ApplyOperationError) { rep.stats.ApplyErrors++ },
	}
}

// churn interleaves edits, hub processing, deliveries and drops until every edit
// has been made.
func (r *run) churn(ctx context.Context) error {
	for made := 0; made < r.cfg.Edits; {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.report.Steps++

		if r.cfg.DropRate > 0 && r.rng.Float64() < r.cfg.DropRate {
			if rep := r.pick(true); rep != nil {
				r.logger.Debug("dropping connection", "client", rep.name)
				rep.conn.Disconnect(ctx)
				r.report.Drops++
			}
		}

		switch roll := r.rng.IntN(10); {
		case roll < 4:
			rep := r.pick(true)
			if rep == nil {
				if err := r.reconnectAll(ctx); err != nil {
					return err
				}
				continue
			}
			if err := rep.editor.UserEdit(randomEdit(r.rng, rep.editor.GetContents())); err != nil {
				return fmt.Errorf("%s: edit failed: %w", rep.name, err)
			}
			rep.stats.Edits++
			made++
		case roll < 6:
			if err := r.process(ctx); err != nil {
				return err
			}
		case roll < 9:
			rep := r.replicas[r.rng.IntN(len(r.replicas))]
			if _, err := rep.conn.DeliverOne(); err != nil {
				return fmt.Errorf("%s: %w", rep.name, err)
			}
		default:
			if rep := r.pick(false); rep != nil {
				if err := r.reconnect(ctx, rep); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// drain brings every replica back online and runs the hub until no events remain.
func (r *run) drain(ctx context.Context) error {
	for range maxDrainRounds {
		if err := r.reconnectAll(ctx); err != nil {
			return err
		}
		if err := r.process(ctx); err != nil {
			return err
		}
		delivered := 0
		for _, rep := range r.replicas {
			n, err := rep.conn.Deliver()
			if err != nil {
				return fmt.Errorf("%s: %w", rep.name, err)
			}
			delivered += n
		}
		if delivered == 0 && r.hub.Pending() == 0 {
			return nil
		}
	}
	return ErrNoProgress
}

func (r *run) process(ctx context.Context) error {
	n, err := r.hub.Process(ctx)
	r.report.Accepted += n
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	return nil
}

// reconnect flushes the hub first so the resync snapshot already holds whatever
// the replica submitted before it dropped.
func (r *run) reconnect(ctx context.Context, rep *replica) error {
	if err := r.process(ctx); err != nil {
		return err
	}
	if err := rep.conn.Reconnect(ctx); err != nil {
		return fmt.Errorf("%s: reconnect: %w", rep.name, err)
	}
	return nil
}

func (r *run) reconnectAll(ctx context.Context) error {
	for _, rep := range r.replicas {
		if rep.conn.Connected() {
			continue
		}
		if err := r.reconnect(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

// pick returns a random replica that is online (or offline), or nil if none is.
func (r *run) pick(online bool) *replica {
	var candidates []*replica
	for _, rep := range r.replicas {
		if rep.conn.Connected() == online {
			candidates = append(candidates, rep)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.rng.IntN(len(candidates))]
}

func (r *run) finish(ctx context.Context) (*Report, error) {
	snap, err := r.hub.Snapshot(ctx, r.cfg.DocumentID)
	if err != nil {
		return r.report, err
	}
	r.report.Revision = snap.Revision
	r.report.Text = snap.Contents.Text()
	r.report.Converged = true
	r.report.Identical = true

	for _, rep := range r.replicas {
		contents := rep.editor.GetContents()
		rep.stats.Text = contents.Text()
		rep.stats.Revision = rep.client.Revision()
		rep.stats.State = rep.client.State().Kind()

		if rep.stats.Text != r.report.Text || rep.stats.Revision != snap.Revision || !rep.client.IsSynchronized() {
			r.report.Converged = false
			r.logger.Warn("replica diverged", "client", rep.name, "revision", rep.stats.Revision, "state", rep.stats.State)
		}
		if !contents.Equal(snap.Contents) {
			r.report.Identical = false
		}
		r.report.Clients = append(r.report.Clients, rep.stats)
	}
	return r.report, nil
}
