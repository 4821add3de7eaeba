package store

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cached query result stays fresh.
const DefaultTTL = 5 * time.Minute

// Options configure a Store. Zero values select defaults.
type Options[T Entity] struct {
	// Name identifies the store in logs and metrics, e.g. "contacts".
	Name string
	TTL  time.Duration
	// PageSize is the default page size of the active query.
	PageSize int
	// SearchFields are the JSON paths matched by local search.
	SearchFields []string
	// DefaultSort is the initial sort field of the active query.
	DefaultSort string
	Rules       []Rule[T]
	Logger      logging.Logger
	Recorder    Recorder
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Store is a cached, optimistic view over one EntityService.
type Store[T Entity] struct {
	name         string
	svc          EntityService[T]
	ttl          time.Duration
	pageSize     int
	searchFields []string
	defaultSort  string
	rules        []Rule[T]
	log          logging.Logger
	rec          Recorder
	now          func() time.Time

	flights singleflight.Group

	mu        sync.RWMutex
	userID    func() string
	cache     map[string]T
	order     []string
	overlay   map[string][]layer
	queries   map[string]*queryResult
	selection map[string]struct{}
	config    crm.Query
	view      *queryResult
	errs      map[Op]error
	loading   map[Op]int
	warnings  map[Op][]Violation
	// generation changes whenever the query cache is invalidated; results of
	// fetches started under an older generation are not stored.
	generation uint64
	// epoch changes on Reset; nothing started before a reset may write state.
	epoch uint64
	seq   uint64
}

type layer struct {
	seq       uint64
	patch     crm.Patch
	tombstone bool
}

type queryResult struct {
	ids       []string
	info      PageInfo
	fetchedAt time.Time
}

// New builds a Store over svc.
func New[T Entity](svc EntityService[T], opts Options[T]) *Store[T] {
	s := &Store[T]{
		name:         opts.Name,
		svc:          svc,
		ttl:          opts.TTL,
		pageSize:     opts.PageSize,
		searchFields: append([]string(nil), opts.SearchFields...),
		defaultSort:  opts.DefaultSort,
		rules:        append([]Rule[T](nil), opts.Rules...),
		log:          opts.Logger,
		rec:          opts.Recorder,
		now:          opts.Now,
		userID:       func() string { return "" },
	}
	if s.name == "" {
		s.name = "entities"
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	s.log = s.log.With("module", "store", "entity", s.name)
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.resetLocked()
	return s
}

// Name returns the store name given in Options.
func (s *Store[T]) Name() string { return s.name }

// AddRule appends a validation rule. Rules that reference sibling stores are
// registered after all stores exist.
func (s *Store[T]) AddRule(r Rule[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
}

func (s *Store[T]) resetLocked() {
	s.cache = map[string]T{}
	s.order = nil
	s.overlay = map[string][]layer{}
	s.queries = map[string]*queryResult{}
	s.selection = map[string]struct{}{}
	s.config = crm.Query{Sort: s.defaultSort, Page: 1, Limit: s.pageSize}.Normalize(s.pageSize)
	s.view = nil
	s.errs = map[Op]error{}
	s.loading = map[Op]int{}
	s.warnings = map[Op][]Violation{}
	s.generation++
	s.epoch++
}

// Reset drops every cached structure, selection, error and loading slot and
// restores the default query. In-flight calls finish but no longer write.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.log.Debug(context.Background(), "store reset")
}

// Err returns the error of the last failed attempt of op, if any.
func (s *Store[T]) Err(op Op) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[op]
}

// Loading reports whether an attempt of op is in flight.
func (s *Store[T]) Loading(op Op) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[op] > 0
}

// Warnings returns the soft validation findings of the last attempt of op.
func (s *Store[T]) Warnings(op Op) []Violation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Violation(nil), s.warnings[op]...)
}

// Snapshot summarizes the store's current size.
func (s *Store[T]) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Cached:     len(s.cache),
		Pending:    len(s.overlay),
		Queries:    len(s.queries),
		Selected:   len(s.selection),
		Generation: s.generation,
	}
}

// begin clears op's error slot, marks it loading, and returns the epoch the
// attempt belongs to.
func (s *Store[T]) begin(op Op) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errs, op)
	delete(s.warnings, op)
	s.loading[op]++
	return s.epoch
}

// finishLocked ends an attempt started by begin. Attempts from before a
// Reset are ignored.
func (s *Store[T]) finishLocked(op Op, epoch uint64, err error) {
	if epoch != s.epoch {
		return
	}
	if s.loading[op] > 0 {
		s.loading[op]--
	}
	if err != nil {
		s.errs[op] = err
	}
}

func (s *Store[T]) finish(op Op, epoch uint64, err error) {
	s.mu.Lock()
	s.finishLocked(op, epoch, err)
	s.mu.Unlock()
}
