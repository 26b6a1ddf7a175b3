// Command accountctl drives the session module against a running account
// service: sign in, inspect the resolved profile, switch or add roles and ask
// the route guard where a path should land.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/lastslot/account-service/internal/core/session"
	"github.com/lastslot/account-service/internal/infrastructure/backend"
	"github.com/lastslot/account-service/pkg/logger"
)

type cliConfig struct {
	APIURL      string        `env:"ACCOUNT_API_URL,         default=http://localhost:8080"`
	SessionFile string        `env:"ACCOUNTCTL_SESSION_FILE"`
	LogLevel    string        `env:"LOG_LEVEL,               default=warn"`
	Timeout     time.Duration `env:"ACCOUNTCTL_TIMEOUT,      default=15s"`
}

const usage = `usage: accountctl <command> [flags]

commands:
  signup        -email -password
  signin        -email -password
  signout
  refresh       rotate the refresh token
  whoami        print session, profile and roles
  onboard       -role [-business]
  update        [-name] [-phone] [-location] [-bio] [-business] [-complete]
  switch-role   <customer|provider>
  add-role      <customer|provider> [-business]
  route         <path> [-last] [-just-completed]
  watch         print auth and profile events until interrupted
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg cliConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "accountctl: %v\n", err)
		os.Exit(2)
	}
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.SessionFile = filepath.Join(dir, "accountctl", "session.json")
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})

	if err := run(ctx, cfg, log, os.Stdout, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "accountctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliConfig, log zerolog.Logger, out io.Writer, cmd string, args []string) error {
	saved, err := loadSession(cfg.SessionFile)
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.SessionFile).Msg("ignoring unreadable session file")
	}

	client := backend.NewClient(cfg.APIURL, log, backend.WithSession(saved))
	m := session.NewManager(client, client, client, log)
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Close()

	c := &commands{cfg: cfg, client: client, manager: m, out: out}

	opCtx := ctx
	if cmd != "watch" {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := c.settle(opCtx, ""); err != nil {
		return err
	}

	var runErr error
	switch cmd {
	case "signup":
		runErr = c.signUp(opCtx, args)
	case "signin":
		runErr = c.signIn(opCtx, args)
	case "signout":
		runErr = c.signOut(opCtx)
	case "refresh":
		runErr = c.refresh(opCtx)
	case "whoami":
		runErr = c.whoami()
	case "onboard":
		runErr = c.onboard(opCtx, args)
	case "update":
		runErr = c.update(opCtx, args)
	case "switch-role":
		runErr = c.switchRole(opCtx, args)
	case "add-role":
		runErr = c.addRole(opCtx, args)
	case "route":
		runErr = c.route(args)
	case "watch":
		runErr = c.watch(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := saveSession(cfg.SessionFile, client.Session()); err != nil {
		log.Warn().Err(err).Str("file", cfg.SessionFile).Msg("could not persist session")
	}
	return runErr
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}
