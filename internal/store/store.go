// Package store implements the entity store: a client-side cache of one
// paginated, filtered entity collection that mediates every read and write
// through a types.Service and exposes loading and error state to views.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/worksite/internal/notify"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

// State is a snapshot of a store. Snapshots are never modified after they
// are handed out.
type State[T types.Entity, F any] struct {
	Items      []T
	Loading    types.LoadingState
	Err        string
	Filters    F
	Pagination types.Pagination
}

// Query is the argument to Fetch. A zero Page or PageSize keeps the
// store's current value; zero Filters means no filtering.
type Query[F any] struct {
	Filters  F
	Page     int
	PageSize int
}

// Label names the entity kind in notifications, e.g. {"worker", "workers"}.
type Label struct {
	Singular string
	Plural   string
}

func (l Label) title() string {
	if l.Singular == "" {
		return ""
	}
	return strings.ToUpper(l.Singular[:1]) + l.Singular[1:]
}

// Store holds the client-side view of one entity collection.
// All methods are safe for concurrent use. Remote calls run without the
// lock held; every state transition replaces the whole snapshot.
type Store[T types.Entity, F any] struct {
	service  types.Service[T, F]
	label    Label
	logger   *zap.Logger
	notifier notify.Notifier

	mu       sync.Mutex
	state    State[T, F]
	fetchSeq uint64
	subs     map[int]func(State[T, F])
	nextSub  int
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	notifier notify.Notifier
	pageSize int
}

// WithLogger sets the logger for action tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier sets where success and error notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithPageSize sets the initial page size.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// New creates a store with empty defaults: no items, idle, no filters,
// page 1 of the configured page size, total 0.
func New[T types.Entity, F any](service types.Service[T, F], label Label, opts ...Option) *Store[T, F] {
	o := options{
		logger:   zap.NewNop(),
		notifier: notify.Discard,
		pageSize: types.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.notifier == nil {
		o.notifier = notify.Discard
	}

	return &Store[T, F]{
		service:  service,
		label:    label,
		logger:   o.logger.Named("store").With(zap.String("entity", label.Plural)),
		notifier: o.notifier,
		state: State[T, F]{
			Items:   []T{},
			Loading: types.LoadingIdle,
			Pagination: types.Pagination{
				Page:     1,
				PageSize: o.pageSize,
			},
		},
		subs: make(map[int]func(State[T, F])),
	}
}

// State returns a snapshot of the current state.
func (s *Store[T, F]) State() State[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with the new snapshot after every
// state transition. The returned function removes the subscription.
func (s *Store[T, F]) Subscribe(fn func(State[T, F])) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Fetch loads one page from the service. On success it replaces the items,
// filters and pagination; on failure it records the error, notifies, and
// returns the error.
//
// A fetch that settles after a newer fetch was started leaves the state
// alone; its result is still returned.
func (s *Store[T, F]) Fetch(ctx context.Context, q Query[F]) ([]T, error) {
	s.mu.Lock()
	page := q.Page
	if page <= 0 {
		page = s.state.Pagination.Page
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = s.state.Pagination.PageSize
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.state.Loading = types.LoadingPending
	s.state.Err = ""
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)

	s.logger.Debug("fetch",
		zap.Any("filters", q.Filters),
		zap.Int("page", page),
		zap.Int("page_size", pageSize),
	)

	result, err := s.service.GetAll(ctx, q.Filters, types.PageRequest{Page: page, PageSize: pageSize})

	s.mu.Lock()
	if seq != s.fetchSeq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale fetch", zap.Uint64("seq", seq))
		if err != nil {
			return nil, err
		}
		return nonNil(result.Data), nil
	}
	if err != nil {
		s.failLocked(err)
		snap, subs = s.snapshotLocked(), s.subscribersLocked()
		s.mu.Unlock()
		publish(subs, snap)

		s.logger.Error("fetch failed", zap.Error(err))
		s.notifier.Notify(notify.Error(fmt.Sprintf("Error fetching %s: %s", s.label.Plural, errorMessage(err))))
		return nil, err
	}

	items := nonNil(result.Data)
	s.state.Items = items
	s.state.Loading = types.LoadingSuccess
	s.state.Filters = q.Filters
	s.state.Pagination = types.Pagination{
		Page:     page,
		PageSize: pageSize,
		Total:    result.Total,
	}
	snap, subs = s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)

	s.logger.Debug("fetch done", zap.Int("count", len(items)), zap.Int("total", result.Total))
	return slices.Clone(items), nil
}

// Refresh re-runs Fetch with the current filters and pagination.
func (s *Store[T, F]) Refresh(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	q := Query[F]{
		Filters:  s.state.Filters,
		Page:     s.state.Pagination.Page,
		PageSize: s.state.Pagination.PageSize,
	}
	s.mu.Unlock()
	return s.Fetch(ctx, q)
}

// SetFilters replaces the filters and resets the page to 1. It does not
// fetch; callers fetch afterwards.
func (s *Store[T, F]) SetFilters(filters F) {
	s.mu.Lock()
	s.state.Filters = filters
	s.state.Pagination.Page = 1
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)
}

// ResetError clears the error message without touching status or data.
func (s *Store[T, F]) ResetError() {
	s.mu.Lock()
	s.state.Err = ""
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)
}

// Create sends entity to the service and appends the stored entity to the
// end of the list.
func (s *Store[T, F]) Create(ctx context.Context, entity T) (T, error) {
	s.begin()

	created, err := s.service.Create(ctx, entity)
	if err != nil {
		s.fail(err, fmt.Sprintf("Failed to add %s: %s", s.label.Singular, errorMessage(err)))
		var zero T
		return zero, err
	}

	s.commit(func(st *State[T, F]) {
		st.Items = append(slices.Clone(st.Items), created)
	})
	s.logger.Debug("created", zap.Int64("id", created.EntityID()))
	s.notifier.Notify(notify.Success(s.label.title() + " added successfully!"))
	return created, nil
}

// Update sends the full entity to the service and replaces the element
// with the same ID in place.
func (s *Store[T, F]) Update(ctx context.Context, entity T) (T, error) {
	s.begin()

	updated, err := s.service.Update(ctx, entity)
	if err != nil {
		s.fail(err, fmt.Sprintf("Failed to update %s: %s", s.label.Singular, errorMessage(err)))
		var zero T
		return zero, err
	}

	id := updated.EntityID()
	s.commit(func(st *State[T, F]) {
		items := slices.Clone(st.Items)
		for i := range items {
			if items[i].EntityID() == id {
				items[i] = updated
			}
		}
		st.Items = items
	})
	s.logger.Debug("updated", zap.Int64("id", id))
	s.notifier.Notify(notify.Success(s.label.title() + " updated successfully!"))
	return updated, nil
}

// Delete removes the entity from the service and, once confirmed, from
// the list.
func (s *Store[T, F]) Delete(ctx context.Context, id int64) error {
	s.begin()

	if err := s.service.Delete(ctx, id); err != nil {
		s.fail(err, fmt.Sprintf("Failed to delete %s: %s", s.label.Singular, errorMessage(err)))
		return err
	}

	s.commit(func(st *State[T, F]) {
		st.Items = slices.DeleteFunc(slices.Clone(st.Items), func(item T) bool {
			return item.EntityID() == id
		})
	})
	s.logger.Debug("deleted", zap.Int64("id", id))
	s.notifier.Notify(notify.Success(s.label.title() + " deleted successfully"))
	return nil
}

// DeleteMany removes every entity in ids. If the batch fails, the store
// cannot tell which entities are gone, so it refreshes once with the
// filters and pagination in effect when DeleteMany was called and returns
// a *types.ReconciliationError.
func (s *Store[T, F]) DeleteMany(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	recovery := Query[F]{
		Filters:  s.state.Filters,
		Page:     s.state.Pagination.Page,
		PageSize: s.state.Pagination.PageSize,
	}
	s.mu.Unlock()

	s.begin()

	if err := s.service.DeleteMany(ctx, ids); err != nil {
		s.fail(err, fmt.Sprintf("Failed to delete some %s: %s", s.label.Plural, errorMessage(err)))

		_, refreshErr := s.Fetch(ctx, recovery)
		return &types.ReconciliationError{
			IDs:        slices.Clone(ids),
			Err:        err,
			RefreshErr: refreshErr,
		}
	}

	remove := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}
	s.commit(func(st *State[T, F]) {
		st.Items = slices.DeleteFunc(slices.Clone(st.Items), func(item T) bool {
			_, ok := remove[item.EntityID()]
			return ok
		})
	})
	s.logger.Debug("deleted batch", zap.Int64s("ids", ids))
	s.notifier.Notify(notify.Success(fmt.Sprintf("%d %s(s) deleted successfully!", len(ids), s.label.Singular)))
	return nil
}

// begin marks a mutation as in flight.
func (s *Store[T, F]) begin() {
	s.mu.Lock()
	s.state.Loading = types.LoadingPending
	s.state.Err = ""
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)
}

// commit applies a successful mutation.
func (s *Store[T, F]) commit(apply func(st *State[T, F])) {
	s.mu.Lock()
	apply(&s.state)
	s.state.Loading = types.LoadingSuccess
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)
}

// fail records a failed mutation and notifies msg.
func (s *Store[T, F]) fail(err error, msg string) {
	s.mu.Lock()
	s.failLocked(err)
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	publish(subs, snap)

	s.logger.Error("action failed", zap.Error(err))
	s.notifier.Notify(notify.Error(msg))
}

func (s *Store[T, F]) failLocked(err error) {
	s.state.Loading = types.LoadingError
	s.state.Err = errorMessage(err)
}

func (s *Store[T, F]) snapshotLocked() State[T, F] {
	snap := s.state
	snap.Items = slices.Clone(s.state.Items)
	return snap
}

func (s *Store[T, F]) subscribersLocked() []func(State[T, F]) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(State[T, F]), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func publish[S any](subs []func(S), snap S) {
	for _, fn := range subs {
		fn(snap)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// errorMessage returns the message recorded in state for err.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var re *types.RemoteError
	if errors.As(err, &re) {
		return re.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error occurred"
}
