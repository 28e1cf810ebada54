package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betheprofessional-bot/assets"
	"betheprofessional-bot/pkg"
	"betheprofessional-bot/pkg/config"
	"betheprofessional-bot/pkg/db"
	"betheprofessional-bot/pkg/handlers"
	"betheprofessional-bot/pkg/i18n"
	"betheprofessional-bot/pkg/topics"
	"betheprofessional-bot/pkg/util"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const startupTimeout = 30 * time.Second

var (
	envFile     string
	databaseURL string
	topicsFile  string
	langDir     string
	language    string
	prefix      string
)

var rootCmd = &cobra.Command{
	Use:   "betheprofessional",
	Short: "Discord bot for self-assignable topic roles",
	Long: `BeTheProfessional lets members of a Discord server give themselves roles
for the topics they work with, e.g. programming languages.

Configuration is read from the environment (optionally from a .env file)
and can be overridden with flags.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands",
	RunE:  runBot,
}

var guildsCmd = &cobra.Command{
	Use:   "guilds",
	Short: "Print the number of guilds in the topic registry",
	RunE:  printGuilds,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "file to load environment variables from")
	flags.StringVar(&databaseURL, "database", pkg.DefaultDatabaseURL, "SQLite file or postgres:// URL of the topic registry")
	flags.StringVar(&topicsFile, "topics", "", "file with the default topics, one per line")
	flags.StringVar(&langDir, "lang-dir", "", "directory with translation bundles")
	flags.StringVar(&language, "language", pkg.DefaultLanguage, "default reply language")
	flags.StringVar(&prefix, "prefix", pkg.DefaultPrefix, "command prefix")

	rootCmd.AddCommand(runCmd, guildsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*pkg.Config, error) {
	if err := pkg.LoadEnv(envFile); err != nil {
		return nil, err
	}
	cfg := pkg.ConfigFromEnv()
	flags := cmd.Flags()
	for name, value := range map[string]*string{
		"database": &cfg.DatabaseURL,
		"topics":   &cfg.TopicsFile,
		"lang-dir": &cfg.LangDir,
		"language": &cfg.DefaultLanguage,
		"prefix":   &cfg.Prefix,
	} {
		if flags.Changed(name) {
			*value, _ = flags.GetString(name)
		}
	}
	return cfg, nil
}

// loadDefaults reads the default topics and the translation catalog, from the
// configured files or the embedded assets.
func loadDefaults(cfg *pkg.Config) (config.Defaults, *i18n.Catalog, error) {
	var (
		list []string
		err  error
	)
	if cfg.TopicsFile != "" {
		list, err = topics.Load(afero.NewOsFs(), cfg.TopicsFile)
	} else {
		list, err = topics.Load(assets.FS(), assets.TopicsFile)
	}
	if err != nil {
		return config.Defaults{}, nil, err
	}

	fs, dir := assets.FS(), assets.LangDir
	if cfg.LangDir != "" {
		fs, dir = afero.NewOsFs(), cfg.LangDir
	}
	catalog, err := i18n.LoadCatalog(fs, dir, cfg.DefaultLanguage)
	if err != nil {
		return config.Defaults{}, nil, err
	}
	return config.Defaults{
		Topics:   list,
		Language: catalog.Fallback().Code(),
	}, catalog, nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	flush, err := util.SetupLogger(os.Stdout, cfg.SentryDSN, cfg.IsProd())
	if err != nil {
		return err
	}
	defer flush()

	slog.Info("btp: starting the bot...", slog.String("disgo.version", disgo.Version))

	defaults, catalog, err := loadDefaults(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	d, err := db.Open(ctx, cfg.DatabaseURL, defaults)
	if err != nil {
		return err
	}
	defer d.Close()
	count, err := d.GuildCount(ctx)
	if err != nil {
		return err
	}
	slog.Info("btp: topic registry opened",
		slog.String("db.driver", d.DriverName()),
		slog.Int("guild.count", count),
		slog.Int("topic.count", len(defaults.Topics)),
		slog.Any("language.codes", catalog.Codes()))

	h := handlers.NewHandler(&pkg.Bot{
		DB:      d,
		Catalog: catalog,
	}, cfg)

	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentDirectMessages, gateway.IntentMessageContent),
			gateway.WithPresenceOpts(gateway.WithListeningActivity(cfg.Prefix+"?"))),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles, cache.FlagMembers)),
		bot.WithEventListeners(h, &events.ListenerAdapter{
			OnGuildMessageCreate: h.OnGuildMessageCreate,
			OnDMMessageCreate:    h.OnDMMessageCreate,
		}))
	if err != nil {
		return err
	}

	defer client.Close(context.TODO())

	if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, handlers.ApplicationCommands); err != nil {
		slog.Error("btp: error while syncing commands", tint.Err(err))
	}

	if err := client.OpenGateway(context.TODO()); err != nil {
		return err
	}

	slog.Info("btp: bot is now running.", slog.String("prefix", cfg.Prefix))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s
	return nil
}

func printGuilds(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	d, err := db.Open(cmd.Context(), cfg.DatabaseURL, config.Defaults{})
	if err != nil {
		return err
	}
	defer d.Close()
	count, err := d.GuildCount(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d guilds in %s\n", count, d.DriverName())
	return err
}
