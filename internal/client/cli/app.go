package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/client/client"
	"github.com/dmitrijs2005/foodcrm/internal/client/config"
	"github.com/dmitrijs2005/foodcrm/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foodcrm/internal/client/services"
	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/dmitrijs2005/foodcrm/internal/client/stores"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/filex"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"github.com/dmitrijs2005/foodcrm/internal/metrics"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// authenticator is the session surface the CLI drives.
type authenticator interface {
	store.Session
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Resume(ctx context.Context) (bool, error)
	Username() string
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type attacher interface {
	Attach(ctx context.Context, interactionID, path string) (crm.Interaction, error)
	Link(ctx context.Context, key string) (string, error)
}

type App struct {
	config      *config.Config
	log         logging.Logger
	auth        authenticator
	stores      *stores.Registry
	attachments attacher
	metrics     *metrics.Metrics
	current     stores.Kind
	// scrolled holds the items shown since the last list, for "more".
	scrolled []any
	// requireLogin is false for the memory backend, which needs no server.
	requireLogin bool

	reader *bufio.Reader
	out    io.Writer
	closer func() error

	mu   sync.Mutex
	mode Mode
}

// NewApp wires the local database, API client, session and stores described
// by c.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	backend, err := stores.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}

	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, filepath.Join(dir, "crm.db"))
	if err != nil {
		return nil, fmt.Errorf("init local database: %w", err)
	}

	api := client.New(c.ServerURL, client.WithTimeout(c.RequestTimeout), client.WithLogger(log))
	auth := services.NewAuthService(api, metadata.NewSQLiteRepository(db), log)
	api.SetTokenSource(auth.AccessToken)

	svcs := stores.HTTPServices(api)
	if backend == stores.BackendMemory {
		svcs = stores.MemoryServices(auth.UserID)
	}

	m := metrics.New(false)
	reg := stores.New(svcs, stores.Config{
		TTL:      c.QueryTTL,
		PageSize: c.PageSize,
		Logger:   log,
		Recorder: m,
	})
	reg.BindSession(auth)

	a := &App{
		config:       c,
		log:          log.With("module", "cli"),
		auth:         auth,
		stores:       reg,
		attachments:  services.NewAttachmentService(api, reg.Interactions, nil, log),
		metrics:      m,
		requireLogin: backend == stores.BackendHTTP,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		closer:       db.Close,
	}
	a.current, _ = reg.Kind(crm.OrganizationSchema.Table)
	return a, nil
}

// Run resumes a saved session, starts the connectivity watcher and blocks in
// the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.close(ctx)

	fmt.Fprintln(a.out, "Food-service CRM (type 'help' for commands)")
	if a.requireLogin {
		ok, err := a.auth.Resume(ctx)
		switch {
		case err != nil:
			a.log.Warn(ctx, "could not resume session", "error", err)
		case ok:
			fmt.Fprintf(a.out, "Welcome back, %s\n", a.auth.Username())
		default:
			fmt.Fprintln(a.out, "Type 'login' or 'register' to start")
		}
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) close(ctx context.Context) {
	a.stores.Unbind()
	if err := a.auth.Close(ctx); err != nil {
		a.log.Warn(ctx, "close api client", "error", err)
	}
	if a.closer != nil {
		if err := a.closer(); err != nil {
			a.log.Warn(ctx, "close local database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return !a.requireLogin || a.auth.UserID() != ""
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.log.Info(ctx, "switched mode", "mode", mode)
	}
}

// StartOnlineStatusWatcher pings the server every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.auth.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

func (a *App) status() string {
	var tags []string
	if name := a.auth.Username(); name != "" {
		tags = append(tags, name)
	}
	if m := a.Mode(); m != "" {
		tags = append(tags, string(m))
	}
	s := ""
	if len(tags) > 0 {
		s = "(" + strings.Join(tags, " ") + ") "
	}
	if a.current != nil {
		s += a.current.Name()
	}
	return s
}
