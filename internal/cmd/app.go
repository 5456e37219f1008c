package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/router"
	"github.com/felixgeelhaar/studyplan/internal/session"
	"github.com/felixgeelhaar/studyplan/internal/storage"
	"github.com/felixgeelhaar/studyplan/internal/ux"
	"github.com/felixgeelhaar/studyplan/internal/version"
)

// App is everything a command needs: the resolved configuration and the
// client stack wired around one navigator.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   storage.Store
	Nav     *navigation.Navigator
	Client  *api.Client
	Session *session.Store
	Router  *router.Router
	Out     io.Writer

	logFile *os.File
}

// newApp resolves the configuration from cmd's flags and wires the client.
// Each adjust runs on the resolved configuration before anything is opened.
// The caller closes the App.
func newApp(cmd *cobra.Command, adjust ...func(*config.Config)) (*App, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command context: %w", err)
	}

	cfg, err := config.Load(cmdCtx.Flags())
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenDir(cfg.Home)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to open client storage", err).
			WithSuggestion("Check permissions on " + cfg.Home + " or pass --home")
	}

	app := wire(cfg, logger, store, cmd.OutOrStdout())
	app.logFile = logFile
	return app, nil
}

// wire builds the client stack on top of cfg and store.
func wire(cfg *config.Config, logger *log.Logger, store storage.Store, out io.Writer) *App {
	nav := navigation.New(navigation.PathHome)
	client := api.New(
		api.Config{BaseURL: cfg.APIURL, Timeout: cfg.APITimeout},
		api.WithCredentials(store),
		api.WithLocator(nav),
		api.WithLogger(logger.With("component", "api")),
	)
	sess := session.New(client, store, nav, session.WithLogger(logger.With("component", "session")))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Nav:     nav,
		Client:  client,
		Session: sess,
		Router:  router.New(nav, sess),
		Out:     out,
	}
}

func newLogger(cfg *config.Config) (*log.Logger, *os.File, error) {
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logCfg.Format = log.ParseFormat(cfg.LogFormat)
	logCfg.ServiceVersion = version.GetInfo().Short()
	if logCfg.Level == log.LevelDebug {
		logCfg.AddSource = true
	}

	var file *os.File
	if cfg.LogFile != "" {
		out, f, err := log.OutputFile(cfg.LogFile)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to open log file", err).
				WithSuggestion("Disable file logging with 'studyplan config set logging.file false'")
		}
		logCfg.Output = out
		file = f
	}

	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)
	return logger, file, nil
}

// Close releases the session subscription and the log file.
func (a *App) Close() {
	a.Session.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *App) formatter() (ux.Formatter, error) {
	return ux.NewFormatter(a.Config.Format, &ux.FormatterOptions{
		Writer:  a.Out,
		NoColor: a.Config.NoColor,
	})
}

// render writes v in the configured format.
func (a *App) render(v any) error {
	f, err := a.formatter()
	if err != nil {
		return err
	}
	return f.Format(v)
}

func (a *App) textMode() bool {
	return a.Config.Format == "" || a.Config.Format == "text"
}

// text prints a line in text mode only, so json and yaml output stay parseable.
func (a *App) text(format string, args ...any) {
	if a.textMode() {
		fmt.Fprintf(a.Out, format+"\n", args...)
	}
}

// requireSession validates the stored credential and runs the route guard
// for path. When the guard sends the user to the login page, path is
// remembered so the next 'auth login' can point back to it.
func (a *App) requireSession(ctx context.Context, path string) error {
	bootErr := a.Session.Boot(ctx)
	res := a.Router.Go(path)
	if res.Decision.Kind == router.DecisionRender && res.Route.Path == path {
		return nil
	}

	snap := a.Session.Snapshot()
	if snap.Unverified {
		return errors.NewUnverifiedSessionError(apiError(a.Config.APIURL, bootErr))
	}

	from := a.Nav.Current().State.From
	if from == "" {
		from = path
	}
	if err := a.Store.Set(storage.KeyRedirect, from); err != nil {
		a.Logger.WithError(err).Warn("failed to remember destination")
	}
	return errors.NewAuthRequiredError(from)
}
