package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/config"
	"github.com/dmitrijs2005/siteofsites/internal/client/events"
	"github.com/dmitrijs2005/siteofsites/internal/client/modal"
	"github.com/dmitrijs2005/siteofsites/internal/client/search"
	"github.com/dmitrijs2005/siteofsites/internal/client/services"
	"github.com/dmitrijs2005/siteofsites/internal/client/session"
	"github.com/dmitrijs2005/siteofsites/internal/client/tokenstore"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	bus      *events.Bus
	store    *tokenstore.Store
	session  *session.Manager
	search   *search.Engine
	modals   *modal.Coordinator
	profiles services.ProfileService
	projects services.ProjectService

	reader *bufio.Reader
	out    io.Writer

	// nav receives navigation intents emitted by the search engine.
	nav    chan string
	unsubs []func()
}

// NewApp opens the token store and wires every component against the
// configured backend.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	store, err := tokenstore.Open(ctx, tokenstore.Driver(c.StoreDriver), c.StorePath)
	if err != nil {
		log.Error(ctx, "error opening token store", "driver", c.StoreDriver, "path", c.StorePath, "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerBaseURL, store, client.WithTimeout(c.RequestTimeout))

	a, err := assemble(c, log, store, api, bufio.NewReader(os.Stdin), os.Stdout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func assemble(c *config.Config, log logging.Logger, store *tokenstore.Store, api client.Client, in *bufio.Reader, out io.Writer) (*App, error) {
	bus := events.NewBus()
	sess := session.NewManager(api, store, log, bus)

	a := &App{
		config:   c,
		log:      log,
		bus:      bus,
		store:    store,
		session:  sess,
		search:   search.New(api, log, bus, search.WithDebounce(c.SearchDebounce), search.WithMinQueryLength(c.SearchMinQueryLength)),
		modals:   modal.NewCoordinator(bus),
		profiles: services.NewProfileService(api, sess, log),
		projects: services.NewProjectService(api, sess, log),
		reader:   in,
		out:      out,
		nav:      make(chan string, 1),
	}

	subs := []struct {
		topic string
		fn    any
	}{
		{events.NavigateToProfile, a.onNavigate},
		{events.SessionChanged, a.onSessionChanged},
		{events.ModalChanged, a.onModalChanged},
	}
	for _, s := range subs {
		unsub, err := bus.Subscribe(s.topic, s.fn)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("subscribe %s: %w", s.topic, err)
		}
		a.unsubs = append(a.unsubs, unsub)
	}
	return a, nil
}

// Event handlers run under the bus lock: they only record or forward.

func (a *App) onNavigate(uniqueID string) {
	select {
	case a.nav <- uniqueID:
	default:
	}
}

func (a *App) onSessionChanged(s session.Session) {
	a.log.Debug(context.Background(), "session changed", "status", s.Status)
}

func (a *App) onModalChanged(s modal.State) {
	a.log.Debug(context.Background(), "modal changed", "modal", s)
}

// Run restores the session, starts the revalidation watcher and blocks in
// the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to Site of Sites (type 'help' for commands)")
	a.session.Bootstrap(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartSessionWatcher(watchCtx, a.config.RevalidateInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops the search engine and releases the token store.
func (a *App) Close() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
	a.search.Close()
	if err := a.store.Close(); err != nil {
		a.log.Error(context.Background(), "error closing token store", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Current().Authenticated()
}

func (a *App) getStatus() string {
	s := a.session.Current()
	if s.Authenticated() {
		return fmt.Sprintf("(%s)", s.User.Nickname)
	}
	return fmt.Sprintf("(%s)", s.Status)
}

// StartSessionWatcher re-validates the credential every interval while the
// session is authenticated. A non-positive interval disables it.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
			wasIn := a.isLoggedIn()
			a.session.Revalidate(rctx)
			cancel()

			if wasIn && !a.isLoggedIn() {
				a.log.Warn(ctx, "session expired")
			}

		case <-ctx.Done():
			return
		}
	}
}
