// Package stores assembles the entity stores of the CRM client: one store per
// entity kind, sharing a session and wired to each other through reference
// rules.
package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/client/client"
	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Backend selects where the stores read from and write to.
type Backend string

const (
	BackendHTTP   Backend = "http"
	BackendMemory Backend = "memory"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendHTTP, BackendMemory:
		return b, nil
	}
	return "", fmt.Errorf("unknown backend %q (want http or memory)", s)
}

// Services bundles one entity service per kind.
type Services struct {
	Organizations store.EntityService[crm.Organization]
	Contacts      store.EntityService[crm.Contact]
	Products      store.EntityService[crm.Product]
	Opportunities store.EntityService[crm.Opportunity]
	Interactions  store.EntityService[crm.Interaction]
}

// HTTPServices talks to the CRM API through c.
func HTTPServices(c *client.HTTPClient) Services {
	return Services{
		Organizations: client.NewEntityService[crm.Organization](c, crm.OrganizationSchema),
		Contacts:      client.NewEntityService[crm.Contact](c, crm.ContactSchema),
		Products:      client.NewEntityService[crm.Product](c, crm.ProductSchema),
		Opportunities: client.NewEntityService[crm.Opportunity](c, crm.OpportunitySchema),
		Interactions:  client.NewEntityService[crm.Interaction](c, crm.InteractionSchema),
	}
}

// MemoryServices keeps everything in process. userID stamps created_by and
// updated_by.
func MemoryServices(userID func() string) Services {
	return Services{
		Organizations: client.NewMemoryEntityService[crm.Organization](crm.OrganizationSchema, userID),
		Contacts:      client.NewMemoryEntityService[crm.Contact](crm.ContactSchema, userID),
		Products:      client.NewMemoryEntityService[crm.Product](crm.ProductSchema, userID),
		Opportunities: client.NewMemoryEntityService[crm.Opportunity](crm.OpportunitySchema, userID),
		Interactions:  client.NewMemoryEntityService[crm.Interaction](crm.InteractionSchema, userID),
	}
}

// Config is shared by every store of a Registry.
type Config struct {
	TTL      time.Duration
	PageSize int
	Logger   logging.Logger
	Recorder store.Recorder
	Now      func() time.Time
}

// Registry owns the five entity stores.
type Registry struct {
	Organizations *store.Store[crm.Organization]
	Contacts      *store.Store[crm.Contact]
	Products      *store.Store[crm.Product]
	Opportunities *store.Store[crm.Opportunity]
	Interactions  *store.Store[crm.Interaction]

	kinds  map[string]Kind
	log    logging.Logger
	unbind []func()
}

// New builds the stores over svcs and installs the local business rules.
func New(svcs Services, cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	r := &Registry{
		Organizations: newStore(svcs.Organizations, crm.OrganizationSchema, cfg),
		Contacts:      newStore(svcs.Contacts, crm.ContactSchema, cfg),
		Products:      newStore(svcs.Products, crm.ProductSchema, cfg),
		Opportunities: newStore(svcs.Opportunities, crm.OpportunitySchema, cfg),
		Interactions:  newStore(svcs.Interactions, crm.InteractionSchema, cfg),
		log:           cfg.Logger.With("module", "stores"),
	}
	r.installRules()

	r.kinds = map[string]Kind{
		crm.OrganizationSchema.Table: newKind(r.Organizations, crm.OrganizationSchema),
		crm.ContactSchema.Table:      newKind(r.Contacts, crm.ContactSchema),
		crm.ProductSchema.Table:      newKind(r.Products, crm.ProductSchema),
		crm.OpportunitySchema.Table:  newKind(r.Opportunities, crm.OpportunitySchema),
		crm.InteractionSchema.Table:  newKind(r.Interactions, crm.InteractionSchema),
	}
	return r
}

func newStore[T store.Entity](svc store.EntityService[T], schema crm.Schema, cfg Config) *store.Store[T] {
	return store.New(svc, store.Options[T]{
		Name:         schema.Table,
		TTL:          cfg.TTL,
		PageSize:     cfg.PageSize,
		SearchFields: schema.Search,
		DefaultSort:  schema.DefaultSort,
		Logger:       cfg.Logger,
		Recorder:     cfg.Recorder,
		Now:          cfg.Now,
	})
}

// Kind returns the type-erased handle of a store by table name.
func (r *Registry) Kind(table string) (Kind, error) {
	if _, err := crm.SchemaFor(table); err != nil {
		return nil, err
	}
	return r.kinds[table], nil
}

// BindSession binds every store to sess. A second call replaces the first.
func (r *Registry) BindSession(sess store.Session) {
	r.Unbind()
	r.unbind = []func(){
		r.Organizations.BindSession(sess),
		r.Contacts.BindSession(sess),
		r.Products.BindSession(sess),
		r.Opportunities.BindSession(sess),
		r.Interactions.BindSession(sess),
	}
}

// Unbind detaches the stores from their session.
func (r *Registry) Unbind() {
	for _, fn := range r.unbind {
		fn()
	}
	r.unbind = nil
}

// Reset clears every store.
func (r *Registry) Reset() {
	for _, t := range crm.Tables() {
		r.kinds[t].Reset()
	}
}

// Refresh reloads the active page of every store in parallel. The first
// error is returned after all loads finished.
func (r *Registry) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range crm.Tables() {
		k := r.kinds[t]
		g.Go(func() error {
			if _, err := k.Refresh(ctx); err != nil {
				return fmt.Errorf("refresh %s: %w", k.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		r.log.Warn(ctx, "refresh failed", "error", err)
	}
	return err
}

// Snapshot reports the diagnostics of every store by table name.
func (r *Registry) Snapshot() map[string]store.Stats {
	out := make(map[string]store.Stats, len(r.kinds))
	for t, k := range r.kinds {
		out[t] = k.Snapshot()
	}
	return out
}
