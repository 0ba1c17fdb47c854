package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackmichael/karma-feed/internal/api"
	"github.com/blackmichael/karma-feed/internal/config"
	"github.com/blackmichael/karma-feed/internal/render"
	"github.com/blackmichael/karma-feed/internal/session"
	"github.com/blackmichael/karma-feed/internal/sqlite"
)

const usage = `usage: karmafeed <command> [flags]

commands:
  login        sign in and store the session
  register     create an account and sign in
  logout       forget the stored session
  whoami       show the signed-in user
  feed         show posts with their comment threads
  post         publish a post
  comment      comment on a post
  reply        reply to a comment
  like         like a post or a comment
  leaderboard  show the karma leaderboard (-watch to keep polling)
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *api.Client
	session  *session.Store
	renderer *render.Renderer
	out      io.Writer
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":       runLogin,
	"register":    runRegister,
	"logout":      runLogout,
	"whoami":      runWhoami,
	"feed":        runFeed,
	"post":        runPost,
	"comment":     runComment,
	"reply":       runReply,
	"like":        runLike,
	"leaderboard": runLeaderboard,
}

// run executes one command. Rendered output goes to stdout.
func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Logs go to stderr so stdout only carries rendered output.
	logger := cfg.NewLogger(os.Stderr)

	creds, err := sqlite.NewRepository(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer creds.Close()

	client := api.NewClient(cfg.APIURL, creds,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
	)
	sess := session.New(client, creds, logger)
	sess.OnSignedOut(func() {
		fmt.Fprintln(os.Stderr, "Your session has ended. Run `karmafeed login` to sign in again.")
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Init(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		session:  sess,
		renderer: render.NewRenderer(80),
		out:      stdout,
	}
	return cmd(ctx, a, args[1:])
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
