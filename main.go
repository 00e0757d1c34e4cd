// ruv-import pulls RUV's EPG and as-run feeds and reconciles them into the
// OZ media catalog.
//
// Usage: ruv-import [-v] <epg|asrun> <channel> <stream> <station>
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	flags "github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/ozinc/ruv-import/internal/importer"
	"github.com/ozinc/ruv-import/internal/journal"
	"github.com/ozinc/ruv-import/internal/oz"
	"github.com/ozinc/ruv-import/internal/ruv"
	"github.com/ozinc/ruv-import/logger"
)

type config struct {
	OZUsername     string `env:"OZ_USERNAME, required"`
	OZPassword     string `env:"OZ_PASSWORD, required"`
	OZClientID     string `env:"OZ_CLIENT_ID, required"`
	OZClientSecret string `env:"OZ_CLIENT_SECRET, required"`
	OZBaseURL      string `env:"OZ_BASE_URL"`
	FeedBaseURL    string `env:"RUV_FEED_URL"`

	// Optional sqlite database recording run history
	JournalDatabase string `env:"JOURNAL_DATABASE"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

type options struct {
	Verbose bool `short:"v" long:"verbose" description:"turn on verbose logging"`

	Args struct {
		Action  string `positional-arg-name:"action" description:"epg or asrun"`
		Channel string `positional-arg-name:"channel" description:"id of the channel being imported to"`
		Stream  string `positional-arg-name:"stream" description:"id of the stream being imported to"`
		Station string `positional-arg-name:"station" description:"external id of the service in RUV's system"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		// go-flags already printed the problem
		os.Exit(1)
	}

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(logger.New(cfg.LoggerFormat, level))

	if err := run(ctx, cfg, opts); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, opts options) error {
	ctx = logger.Ctx(ctx,
		slog.String("action", opts.Args.Action),
		slog.String("channel", opts.Args.Channel),
	)

	catalog, err := oz.NewClient(ctx, oz.Config{
		BaseURL:      cfg.OZBaseURL,
		ChannelID:    opts.Args.Channel,
		Username:     cfg.OZUsername,
		Password:     cfg.OZPassword,
		ClientID:     cfg.OZClientID,
		ClientSecret: cfg.OZClientSecret,
	})
	if err != nil {
		return fmt.Errorf("error creating catalog client: %w", err)
	}

	feed := ruv.NewClient(cfg.FeedBaseURL, opts.Args.Station)

	var rec *journal.Recorder
	if cfg.JournalDatabase != "" {
		dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_journal_mode=WAL", cfg.JournalDatabase))
		if err != nil {
			return fmt.Errorf("error opening journal database: %s", err)
		}
		defer dbx.Close()

		if err := journal.Migrate(dbx); err != nil {
			return fmt.Errorf("error migrating journal database: %s", err)
		}
		rec = journal.NewRecorder(dbx)
	}

	im := importer.New(feed, catalog, importer.Config{
		ChannelID: opts.Args.Channel,
		StreamID:  opts.Args.Stream,
	}, rec)

	switch opts.Args.Action {
	case "epg":
		return im.ImportEPG(ctx)
	case "asrun":
		return im.ImportAsRun(ctx)
	default:
		return fmt.Errorf("unsupported action %q", opts.Args.Action)
	}
}
