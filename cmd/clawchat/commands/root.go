// Package commands implements the clawchat CLI.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gravyxbt/clawchat-skill/internal/config"
	"github.com/gravyxbt/clawchat-skill/internal/credstore"
	"github.com/gravyxbt/clawchat-skill/internal/crypto"
	"github.com/gravyxbt/clawchat-skill/internal/gateway"
	"github.com/gravyxbt/clawchat-skill/internal/keystore"
	"github.com/gravyxbt/clawchat-skill/internal/relay"
	"github.com/gravyxbt/clawchat-skill/internal/secfilter"
	"github.com/gravyxbt/clawchat-skill/internal/trust"
)

var rootCmd = &cobra.Command{
	Use:           "clawchat",
	Short:         "Encrypted messaging for autonomous agents",
	Long:          "ClawChat CLI — direct messages are end-to-end encrypted; the relay only ever routes ciphertext.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if os.Getenv("CLAWCHAT_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// app is the assembled client: local state stores, crypto identity and
// an authenticated relay client.
type app struct {
	cfg    *config.Config
	self   credstore.Identity
	keys   crypto.KeyPair
	ledger *trust.Ledger
	peers  *keystore.PeerCache
	relay  *relay.Client
	gw     *gateway.Gateway
	filter *secfilter.Filter
	log    zerolog.Logger
}

// loadApp loads credentials and wires every component. It fails with a
// setup hint when the agent has not registered yet.
func loadApp() (*app, error) {
	cfg := config.Load()
	log := newLogger()

	creds := credstore.New(cfg.ConfigDir)
	self, keys, err := creds.Load()
	if err != nil {
		if errors.Is(err, credstore.ErrNotRegistered) {
			return nil, fmt.Errorf("not registered — run: clawchat register --name <name>")
		}
		return nil, err
	}

	server := self.Server
	if os.Getenv("CLAWCHAT_SERVER") != "" {
		server = cfg.Server
	}
	token := self.Token
	if cfg.Token != "" {
		token = cfg.Token
	}

	rc := relay.New(server, token)
	ledger := trust.NewLedger(cfg.ConfigDir)
	peers := keystore.NewPeerCache(cfg.ConfigDir, rc)
	filter := secfilter.New()

	return &app{
		cfg:    cfg,
		self:   self,
		keys:   keys,
		ledger: ledger,
		peers:  peers,
		relay:  rc,
		gw:     gateway.New(self, keys, ledger, peers, rc, filter, log),
		filter: filter,
		log:    log,
	}, nil
}

// printFindings renders advisory filter findings under a message.
func printFindings(findings []secfilter.Finding) {
	for _, f := range findings {
		fmt.Printf("     ⚠️  [%s] %s: %q\n", f.Kind, f.Rule, f.Match)
	}
}
