// Package cli implements chatctl, a command line chat client for a chatd
// gateway. Messages are sealed and opened locally; the gateway only sees
// envelope sets.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/wavechat/pkg/config"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// ErrUsage is returned for unknown commands and bad arguments.
var ErrUsage = errors.New("usage error")

// Options are the global flags.
type Options struct {
	ConfigPath   string
	GatewayURL   string
	WalletPath   string
	KeyStorePath string
	Verbose      bool
}

// Env is what a command runs with.
type Env struct {
	Config     *config.Config
	WalletPath string
	Out        io.Writer
	Logger     *logging.ColoredLogger
}

// app carries the parsed global flags to the subcommands. The Env is built on
// first use so that help output never touches the wallet or key store.
type app struct {
	opts Options
	out  io.Writer
	env  *Env
}

func (a *app) environment() (*Env, error) {
	if a.env != nil {
		return a.env, nil
	}
	env, err := newEnv(a.opts, a.out)
	if err != nil {
		return nil, err
	}
	a.env = env
	return env, nil
}

// NewRootCommand builds the chatctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "End-to-end encrypted chat client",
		Long:          "chatctl talks to a chatd gateway. Bodies are sealed for every member before upload and opened locally.",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", os.Getenv("CHATCTL_CONFIG"), "Path to the YAML config file")
	flags.StringVar(&a.opts.GatewayURL, "gateway", os.Getenv("CHATCTL_GATEWAY"), "Gateway URL, overrides client.gateway_url")
	flags.StringVar(&a.opts.WalletPath, "wallet", "", "Wallet key file (default ~/.wavechat/wallet.key)")
	flags.StringVar(&a.opts.KeyStorePath, "keystore", "", "sqlite file for box key pairs, overrides keystore.sqlite_path")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newKeygenCmd(a),
		newHealthCmd(a),
		newRegisterCmd(a),
		newProfileCmd(a),
		newContactCmd(a),
		newConversationCmd(a),
		newSendCmd(a),
		newReadCmd(a),
		newWatchCmd(a),
		newKeyCmd(a),
	)
	return root
}

// Run executes chatctl with args.
func Run(ctx context.Context, args []string, out io.Writer) error {
	root := NewRootCommand(out)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// usageArgs tags positional argument failures with ErrUsage.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}
}

// groupCmd is a command that only holds subcommands.
func groupCmd(use, short string, children ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(children...)
	return cmd
}

func newEnv(opts Options, out io.Writer) (*Env, error) {
	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.GatewayURL != "" {
		cfg.Client.GatewayURL = opts.GatewayURL
	}

	dir, err := config.ConfigDir()
	if err != nil && (opts.WalletPath == "" || opts.KeyStorePath == "") {
		return nil, err
	}
	if opts.KeyStorePath != "" {
		cfg.KeyStore.Backend, cfg.KeyStore.SQLitePath = "sqlite", opts.KeyStorePath
	} else if cfg.KeyStore.Backend == "memory" {
		// Keys held only in memory would be lost when the command exits.
		cfg.KeyStore.Backend, cfg.KeyStore.SQLitePath = "sqlite", filepath.Join(dir, "keys.db")
	}
	wallet := opts.WalletPath
	if wallet == "" {
		wallet = filepath.Join(dir, "wallet.key")
	}

	logger := logging.NewNop()
	if opts.Verbose {
		if logger, err = logging.NewColoredLogger(logging.ComponentGeneral, true); err != nil {
			return nil, err
		}
	}
	return &Env{Config: cfg, WalletPath: wallet, Out: out, Logger: logger}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func trimList(in []string) []string {
	var out []string
	for _, part := range in {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
