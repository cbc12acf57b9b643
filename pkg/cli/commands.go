package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/wavechat/pkg/chat"
	"github.com/DeBrosOfficial/wavechat/pkg/client"
	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
)

// withSession signs in and runs fn with the session, closing it afterwards.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, env *Env, s *session) error) error {
	env, err := a.environment()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, env, s)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: --%s is required", ErrUsage, name)
	}
	return nil
}

func newKeygenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create the wallet key if missing and print its address",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment()
			if err != nil {
				return err
			}
			key, created, err := loadOrCreateWallet(env.WalletPath)
			if err != nil {
				return err
			}
			return printJSON(env.Out, map[string]any{
				"address": walletAddress(key),
				"path":    env.WalletPath,
				"created": created,
			})
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the gateway",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment()
			if err != nil {
				return err
			}
			c, err := client.NewClient(client.Config{GatewayURL: env.Config.Client.GatewayURL, Timeout: env.Config.Client.Timeout}, env.Logger)
			if err != nil {
				return err
			}
			if err := c.Health(cmd.Context()); err != nil {
				return err
			}
			return printJSON(env.Out, map[string]string{"status": "ok", "gateway": env.Config.Client.GatewayURL})
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var in ledger.ProfileInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish a profile and encryption key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("username", in.Username); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				p, err := s.messenger.Register(ctx, s.wallet, in)
				if err != nil {
					return err
				}
				return printJSON(env.Out, p)
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "Display name (required)")
	cmd.Flags().StringVar(&in.Bio, "bio", "", "Short bio")
	cmd.Flags().StringVar(&in.AvatarRef, "avatar", "", "Content ref of an avatar image")
	cmd.Flags().StringVar(&in.Status, "status", "", "Status line")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [address]",
		Short: "Show a profile, your own by default",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				address := s.wallet
				if len(args) > 0 {
					address = args[0]
				}
				p, err := s.client.GetProfile(ctx, s.wallet, address)
				if err != nil {
					return err
				}
				if p == nil {
					return apperrors.NewNotFoundError("profile", address)
				}
				return printJSON(env.Out, p)
			})
		},
	}
}

func newContactCmd(a *app) *cobra.Command {
	var alias string
	add := &cobra.Command{
		Use:   "add <peer>",
		Short: "Add a wallet to your contacts",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				c, err := s.client.AddContact(ctx, s.wallet, args[0], alias)
				if err != nil {
					return err
				}
				return printJSON(env.Out, c)
			})
		},
	}
	add.Flags().StringVar(&alias, "alias", "", "Local alias for the peer")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your contacts",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				contacts, err := s.client.ListContacts(ctx, s.wallet, "")
				if err != nil {
					return err
				}
				return printJSON(env.Out, contacts)
			})
		},
	}

	return groupCmd("contact", "Manage contacts", add, list)
}

func newConversationCmd(a *app) *cobra.Command {
	var (
		in      ledger.ConversationInput
		members []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Start a direct or group conversation",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Members = trimList(members)
			if len(in.Members) == 0 {
				return fmt.Errorf("%w: --members is required", ErrUsage)
			}
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				c, err := s.client.CreateConversation(ctx, s.wallet, in)
				if err != nil {
					return err
				}
				return printJSON(env.Out, c)
			})
		},
	}
	create.Flags().StringSliceVar(&members, "members", nil, "Comma-separated member wallets, not including yourself")
	create.Flags().StringVar(&in.ID, "id", "", "Conversation id (default: derived for direct chats, random for groups)")
	create.Flags().StringVar(&in.Title, "title", "", "Title")
	create.Flags().BoolVar(&in.IsGroup, "group", false, "Create a group conversation")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the conversations you belong to",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				convs, err := s.client.ListConversations(ctx, s.wallet, "")
				if err != nil {
					return err
				}
				return printJSON(env.Out, convs)
			})
		},
	}

	return groupCmd("conversation", "Manage conversations", create, list)
}

func newSendCmd(a *app) *cobra.Command {
	var cid, text, file, mime, mediaURL string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Seal and send a message",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("conversation", cid); err != nil {
				return err
			}
			draft := chat.Draft{Text: text, MediaURL: mediaURL}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read attachment: %w", err)
				}
				draft.Attachment = &chat.Attachment{Data: data, Name: filepath.Base(file), MimeType: mime}
			}
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				m, err := s.messenger.Send(ctx, s.wallet, cid, draft)
				if err != nil {
					return err
				}
				return printJSON(env.Out, m)
			})
		},
	}
	cmd.Flags().StringVarP(&cid, "conversation", "c", "", "Conversation id (required)")
	cmd.Flags().StringVar(&text, "text", "", "Message text")
	cmd.Flags().StringVar(&file, "file", "", "Attachment to encrypt with the message")
	cmd.Flags().StringVar(&mime, "mime", "application/octet-stream", "Attachment MIME type")
	cmd.Flags().StringVar(&mediaURL, "media-url", "", "Link to media hosted elsewhere")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	var (
		cid    string
		cursor uint64
		limit  uint32
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Fetch and decrypt a page of messages",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("conversation", cid); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				b, err := s.messenger.Read(ctx, s.wallet, cid, cursor, limit)
				if err != nil {
					return err
				}
				return printJSON(env.Out, b)
			})
		},
	}
	cmd.Flags().StringVarP(&cid, "conversation", "c", "", "Conversation id (required)")
	cmd.Flags().Uint64Var(&cursor, "cursor", 0, "First message id to read")
	cmd.Flags().Uint32Var(&limit, "limit", 0, "Page size (0 = gateway default)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		cid    string
		cursor uint64
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for new messages until interrupted",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("conversation", cid); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, env *Env, s *session) error {
				p := chat.NewPoller(s.messenger, s.wallet, cid, chat.PollerConfig{
					Interval: env.Config.Client.PollInterval,
					Cursor:   cursor,
				})
				var printErr error
				err := p.Run(ctx, func(b *chat.Batch) {
					for _, it := range b.Items {
						if err := printJSON(env.Out, it); err != nil && printErr == nil {
							printErr = err
						}
					}
				})
				if printErr != nil {
					return printErr
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&cid, "conversation", "c", "", "Conversation id (required)")
	cmd.Flags().Uint64Var(&cursor, "cursor", 0, "First message id to read")
	return cmd
}

// withKeys opens the local key store for the wallet without contacting the
// gateway.
func (a *app) withKeys(cmd *cobra.Command, fn func(ctx context.Context, env *Env, wallet string, keys *keystore.KeyStore) error) error {
	env, err := a.environment()
	if err != nil {
		return err
	}
	key, _, err := loadOrCreateWallet(env.WalletPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openKeyStore(ctx, env)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, env, walletAddress(key), keystore.New(store, keystore.WithLogger(env.Logger)))
}

func newKeyCmd(a *app) *cobra.Command {
	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the box key pair to a 0600 file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeys(cmd, func(ctx context.Context, env *Env, wallet string, keys *keystore.KeyStore) error {
				kp, ok, err := keys.LoadKeyPair(ctx, wallet)
				if err != nil {
					return err
				}
				if !ok {
					return apperrors.NewNotFoundError("key pair", wallet)
				}
				if err := keystore.ExportFile(args[0], kp); err != nil {
					return err
				}
				return printJSON(env.Out, map[string]string{"identity": kp.Identity, "publicKey": kp.PublicKeyBase64(), "file": args[0]})
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a box key pair exported for this wallet",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKeys(cmd, func(ctx context.Context, env *Env, wallet string, keys *keystore.KeyStore) error {
				kp, err := keystore.ImportFile(args[0])
				if err != nil {
					return err
				}
				if keystore.NormalizeIdentity(kp.Identity) != wallet {
					return apperrors.NewValidationError("identity", "key pair belongs to another wallet", kp.Identity)
				}
				if err := keys.Import(ctx, kp); err != nil {
					return err
				}
				return printJSON(env.Out, map[string]string{"identity": kp.Identity, "publicKey": kp.PublicKeyBase64()})
			})
		},
	}

	return groupCmd("key", "Back up or restore the box key pair", export, imp)
}
