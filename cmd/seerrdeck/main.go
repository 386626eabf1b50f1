package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/waabox/seerrdeck/internal/auth"
	"github.com/waabox/seerrdeck/internal/config"
	"github.com/waabox/seerrdeck/internal/domain"
	"github.com/waabox/seerrdeck/internal/mediaserver"
	"github.com/waabox/seerrdeck/internal/platform"
	"github.com/waabox/seerrdeck/internal/storage"
	"github.com/waabox/seerrdeck/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

var (
	configPath string
	plainLogin bool

	cfg        config.Config
	store      storage.Store
	closeStore = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "seerrdeck",
	Short:         "Sign in to a media request server with your Plex account",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFrom(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level, err := logrus.ParseLevel(cfg.LogLevelOrDefault())
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		logrus.SetLevel(level)
		logrus.SetOutput(os.Stderr)

		store, closeStore, err = storage.Open(cfg.StorageDriverOrDefault(), cfg.StoragePathOrDefault())
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize this device with Plex and save the token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved Plex token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.NewTokenManager(store).Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Signed out.")
		return nil
	},
}

var deviceIDCmd = &cobra.Command{
	Use:   "device-id",
	Short: "Print the client identifier this device uses with Plex",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := auth.NewDeviceIdentity(store, nil).Get(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Plex token and media server session state",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to the config file")
	loginCmd.Flags().BoolVar(&plainLogin, "plain", false, "Print the code and URL instead of the interactive view")
	rootCmd.AddCommand(loginCmd, logoutCmd, deviceIDCmd, statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seerrdeck: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newLogin returns a LoginFunc that builds a fresh Coordinator per attempt.
func newLogin() tui.LoginFunc {
	identity := auth.NewDeviceIdentity(store, nil)
	product := auth.ProductInfo{Name: cfg.ProductOrDefault()}
	facts := func() platform.Facts {
		return platform.Detect(platform.TerminalScreen{FD: int(os.Stdout.Fd())}, cfg.Plex.Language)
	}
	pins := auth.NewPinRequester(cfg.Plex.APIURL, nil)
	poller := auth.NewTokenPoller(cfg.Plex.APIURL, nil, cfg.PollIntervalOrDefault(), cfg.LoginTimeoutOrDefault())

	return func(ctx context.Context, observe func(auth.Event)) (auth.AuthToken, error) {
		c := auth.NewCoordinator(identity, product, facts, pins, auth.BrowserLauncher{}, poller,
			auth.WithObserver(observe),
			auth.WithAuthURL(cfg.Plex.AuthURL),
		)
		return c.Login(ctx)
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.Server.URL != "" {
		if err := config.ValidateServerURL(cfg.Server.URL); err != nil {
			return fmt.Errorf("server.url: %w", err)
		}
	}

	login := newLogin()
	var (
		token auth.AuthToken
		err   error
	)
	if plainLogin || !term.IsTerminal(int(os.Stdin.Fd())) {
		token, err = login(ctx, printProgress)
	} else {
		token, err = tui.Run(cfg.ProductOrDefault(), login, os.Stderr)
	}
	if errors.Is(err, domain.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	tokens := auth.NewTokenManager(store)
	if err := tokens.Save(ctx, token); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save token: %v (you will need to sign in again next run)\n", err)
	} else {
		fmt.Fprintln(os.Stderr, "Signed in to Plex. Token saved.")
	}

	if cfg.Server.URL == "" {
		return nil
	}
	client, err := mediaserver.NewClient(cfg.Server.URL, nil)
	if err != nil {
		return err
	}
	user, err := client.SignInWithPlex(ctx, string(token))
	if err != nil {
		return fmt.Errorf("signing in to %s: %w", cfg.Server.URL, err)
	}
	fmt.Fprintf(os.Stderr, "Signed in to %s as %s\n", cfg.Server.URL, user.Name())
	return nil
}

// printProgress writes login prompts to stderr so stdout remains clean for piping.
func printProgress(e auth.Event) {
	switch e.State {
	case auth.StateAuthorizationOpened:
		fmt.Fprintf(os.Stderr, "Visit:      %s\n", e.URL)
		fmt.Fprintf(os.Stderr, "Enter code: %s\n", e.Pin.Code)
	case auth.StatePolling:
		fmt.Fprintf(os.Stderr, "Waiting for authorization...\n")
	case auth.StateCancelled:
		fmt.Fprintln(os.Stderr, "Login cancelled.")
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tokens := auth.NewTokenManager(store)

	_, err := tokens.Token(ctx)
	switch {
	case errors.Is(err, auth.ErrNoToken):
		fmt.Println("plex:   not signed in")
	case err != nil:
		return err
	default:
		fmt.Println("plex:   signed in")
	}

	if cfg.Server.URL == "" {
		fmt.Println("server: not configured")
		return nil
	}
	if err := config.ValidateServerURL(cfg.Server.URL); err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	client, err := mediaserver.NewClient(cfg.Server.URL, nil)
	if err != nil {
		return err
	}
	session := mediaserver.NewSession(client, func(ctx context.Context) error {
		return tokens.Reauthenticate(ctx, func(ctx context.Context, token auth.AuthToken) error {
			_, err := client.SignInWithPlex(ctx, string(token))
			return err
		})
	})

	status, err := session.Status(ctx)
	if err != nil {
		return fmt.Errorf("server %s unreachable: %w", cfg.Server.URL, err)
	}
	fmt.Printf("server: %s (version %s)\n", cfg.Server.URL, strings.TrimPrefix(status.Version, "v"))

	user, err := session.Me(ctx)
	var expired *mediaserver.AuthExpiredError
	switch {
	case errors.As(err, &expired):
		fmt.Println("user:   session expired, run 'seerrdeck login'")
	case err != nil:
		return err
	default:
		fmt.Printf("user:   %s\n", user.Name())
	}
	return nil
}
