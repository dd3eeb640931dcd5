package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"TokenTracker/internal/analysis"
	"TokenTracker/internal/archive"
	"TokenTracker/internal/auth"
	"TokenTracker/internal/cache"
	"TokenTracker/internal/calculator"
	"TokenTracker/internal/chart"
	"TokenTracker/internal/collector"
	"TokenTracker/internal/config"
	"TokenTracker/internal/dashboard"
	"TokenTracker/internal/notifier"
	"TokenTracker/internal/recorder"
	"TokenTracker/internal/report"
	"TokenTracker/internal/scheduler"
)

const usage = `Usage: tracker [command] [flags]

Commands:
  run            fetch, analyse and write reports (default)
  watch          run on a cron schedule and answer Telegram commands
  dashboard      serve the web dashboard
  ping           check the market data API
  demo           run the full pipeline on generated data
  hash-password  print a bcrypt hash for auth.password_hash

Flags:
`

type flags struct {
	configPath      string
	days            int
	priceThreshold  float64
	volumeThreshold float64
	noAuth          bool
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cmd, args := "run", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	f, err := parseFlags(cmd, args)
	if err != nil {
		os.Exit(2)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		err = runOnce(ctx, cfg, f)
	case "watch":
		err = watch(ctx, cfg)
	case "dashboard":
		err = serveDashboard(ctx, cfg, f)
	case "ping":
		err = ping(ctx, cfg)
	case "demo":
		err = demo(ctx, cfg)
	case "hash-password":
		err = hashPassword()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if errors.Is(err, auth.ErrAccessDenied) {
		os.Exit(1)
	}
	if err != nil {
		stop()
		log.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}

func parseFlags(cmd string, args []string) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	fs.StringVar(&f.configPath, "config", defaultPath, "path to the YAML config file")
	fs.IntVar(&f.days, "days", 0, "number of days to analyse")
	fs.IntVar(&f.days, "d", 0, "shorthand for -days")
	fs.Float64Var(&f.priceThreshold, "price-threshold", 0, "price spike threshold in percent")
	fs.Float64Var(&f.priceThreshold, "p", 0, "shorthand for -price-threshold")
	fs.Float64Var(&f.volumeThreshold, "volume-threshold", 0, "volume spike threshold in percent")
	fs.Float64Var(&f.volumeThreshold, "v", 0, "shorthand for -volume-threshold")
	fs.BoolVar(&f.noAuth, "no-auth", false, "skip the password prompt")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.days != 0 {
		cfg.Analysis.Days = f.days
	}
	if f.priceThreshold != 0 {
		cfg.Analysis.PriceThreshold = f.priceThreshold
	}
	if f.volumeThreshold != 0 {
		cfg.Analysis.VolumeThreshold = f.volumeThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func options(cfg *config.Config) analysis.Options {
	return analysis.Options{
		Days: cfg.Analysis.Days,
		Thresholds: calculator.Thresholds{
			Price:  cfg.Analysis.PriceThreshold,
			Volume: cfg.Analysis.VolumeThreshold,
		},
	}
}

func authenticate(cfg *config.Config, f *flags) error {
	if f.noAuth {
		return nil
	}
	return auth.NewGate(cfg.Auth.Password, cfg.Auth.PasswordHash, cfg.Auth.MaxAttempts).Authenticate()
}

func runOnce(ctx context.Context, cfg *config.Config, f *flags) error {
	if err := authenticate(cfg, f); err != nil {
		return err
	}
	fetcher, closeCache := newFetcher(ctx, cfg)
	a, err := newApp(ctx, cfg, fetcher, false, closeCache)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.collector.TestConnection(ctx); err != nil {
		return fmt.Errorf("API connection failed: %w", err)
	}
	return a.runAndPrint(ctx, options(cfg))
}

func demo(ctx context.Context, cfg *config.Config) error {
	log.Info().Msg("demo mode: using generated market data")
	a, err := newApp(ctx, cfg, &collector.MockFetcher{}, true)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.runAndPrint(ctx, options(cfg))
}

func ping(ctx context.Context, cfg *config.Config) error {
	fetcher, closeCache := newFetcher(ctx, cfg)
	if closeCache != nil {
		defer closeCache()
	}
	col := collector.NewCollector(fetcher, cfg.Token.ID, cfg.Token.VsCurrency)
	if err := col.TestConnection(ctx); err != nil {
		return fmt.Errorf("API connection failed: %w", err)
	}
	fmt.Println("✓ API connection successful")
	return nil
}

func watch(ctx context.Context, cfg *config.Config) error {
	fetcher, closeCache := newFetcher(ctx, cfg)
	a, err := newApp(ctx, cfg, fetcher, false, closeCache)
	if err != nil {
		return err
	}
	defer a.Close()

	var n analysis.Notifier
	if a.telegram != nil {
		n = a.telegram
	}
	sched := scheduler.NewScheduler(ctx, a.runner, options(cfg), n)
	if err := sched.RegisterAll(cfg.Schedule.WatchCron, cfg.Schedule.SummaryCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	log.Info().Str("cron", cfg.Schedule.WatchCron).Msg("tracker is watching, press Ctrl+C to stop")
	g, gctx := errgroup.WithContext(ctx)
	if a.telegram != nil {
		g.Go(func() error {
			a.telegram.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		log.Info().Msg("telegram polling started")
	}
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running analysis now")
		g.Go(func() error {
			sched.RunNow()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	_ = g.Wait()

	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

func serveDashboard(ctx context.Context, cfg *config.Config, f *flags) error {
	if err := authenticate(cfg, f); err != nil {
		return err
	}
	fetcher, closeCache := newFetcher(ctx, cfg)
	a, err := newApp(ctx, cfg, fetcher, false, closeCache)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := dashboard.NewServer(cfg.Dashboard.Addr, cfg.Dashboard.CORSOrigins, a.runner, a.writer,
		cfg.Output.VisualizationsDir, options(cfg))
	if err := srv.EnsureData(ctx); err != nil {
		// The dashboard still starts and can refresh later.
		log.Error().Err(err).Msg("initial analysis failed")
	}
	return srv.Run(ctx)
}

func hashPassword() error {
	pw, err := auth.TerminalPrompt("New password: ")
	if err != nil {
		return err
	}
	h, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}

// newFetcher returns the CoinGecko fetcher, wrapped in the Redis cache when
// one is configured and reachable. The returned close func releases the Redis
// client and is nil without a cache.
func newFetcher(ctx context.Context, cfg *config.Config) (collector.Fetcher, func() error) {
	var fetcher collector.Fetcher = collector.NewCoinGeckoFetcher(
		cfg.API.BaseURL, cfg.API.APIKey, cfg.UserAgent(), cfg.Proxy,
		time.Duration(cfg.API.TimeoutSeconds)*time.Second)
	if cfg.Redis.Addr == "" {
		return fetcher, nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rc, err := cache.New(pingCtx, cache.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, fetching without cache")
		return fetcher, nil
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("response cache enabled")
	return collector.NewCachedFetcher(fetcher, rc, time.Duration(cfg.Redis.TTLSeconds)*time.Second), rc.Close
}

// app holds the wired components shared by the commands.
type app struct {
	cfg       *config.Config
	collector *collector.Collector
	writer    *report.Writer
	runner    *analysis.Runner
	telegram  *notifier.TelegramNotifier
	closers   []func() error
}

// newApp wires the pipeline around fetcher. Demo mode leaves out the
// recorder, notifier and archive. The app takes ownership of closers, which
// run on Close or when wiring fails.
func newApp(ctx context.Context, cfg *config.Config, fetcher collector.Fetcher, demo bool, closers ...func() error) (*app, error) {
	a := &app{cfg: cfg}
	for _, c := range closers {
		if c != nil {
			a.closers = append(a.closers, c)
		}
	}
	log.Info().Str("source", fetcher.Name()).Str("token", cfg.Token.ID).Msg("data source")
	a.collector = collector.NewCollector(fetcher, cfg.Token.ID, cfg.Token.VsCurrency)

	w, err := report.NewWriter(cfg.Output.DataDir, cfg.Output.ReportsDir, cfg.Token.ID, cfg.Token.VsCurrency)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.writer = w
	charts, err := chart.NewRenderer(cfg.Output.VisualizationsDir, cfg.Token.ID,
		cfg.Output.ChartWidthInch, cfg.Output.ChartHeightInch, cfg.Output.ChartDPI)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := analysis.Deps{Collector: a.collector, Writer: w, Charts: charts}
	if !demo {
		deps.Recorder = a.openRecorder()
		if cfg.Telegram.BotToken != "" {
			a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
			deps.Notifier = a.telegram
		}
		if cfg.S3.Bucket != "" {
			up, err := archive.New(ctx, archive.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				Prefix:         cfg.S3.Prefix,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				log.Warn().Err(err).Msg("s3 archive disabled")
			} else {
				deps.Archiver = up
			}
		}
	}
	a.runner = analysis.NewRunner(deps)
	return a, nil
}

func (a *app) openRecorder() recorder.Recorder {
	path := a.cfg.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Msg("create database directory failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, sr.Close)
	return sr
}

func (a *app) runAndPrint(ctx context.Context, opts analysis.Options) error {
	res, err := a.runner.Run(ctx, opts)
	if errors.Is(err, analysis.ErrNoData) {
		fmt.Println("No market data available for the requested period.")
		return nil
	}
	if err != nil {
		return err
	}
	report.PrintSummary(os.Stdout, res.Document)
	fmt.Println("Generated files:")
	for _, p := range res.Files.All() {
		fmt.Printf("  • %s\n", p)
	}
	return nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}
