// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/EndBlue418/Spark-Discord-BOT/internal/api/connect"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/intake"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/lyrics"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/notification"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/playback"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/render"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/workpool"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/config"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/logger"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/romaji"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/spotify"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/voice"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/youtube"
)

var (
	app        = kingpin.New("spark-server", "Spark playback and lyrics server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	jsonLogs   = app.Flag("json-logs", "Write JSON logs to stdout").Bool()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		JSON:   *jsonLogs,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Close()
	}()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		printConfigSummary(cfg)
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Lyrics
	providers, err := lyrics.NewProvidersFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create lyrics providers: %w", err)
	}
	pool := workpool.New(cfg.Lyrics.Workers)
	var transliterator lyrics.Transliterator
	if cfg.Lyrics.Romaji == "kagome" {
		transliterator = romaji.New()
	}
	lyricsResolver := lyrics.NewResolver(providers, pool, transliterator, lyrics.Config{
		ProviderTimeout: cfg.Lyrics.ProviderTimeout(),
		ResolveTimeout:  cfg.Lyrics.ResolveTimeout(),
	})

	renderer := render.NewRenderer(render.Config{
		Tick:          cfg.Render.Tick(),
		Lead:          cfg.Render.Lead(),
		DefaultSpan:   cfg.Render.DefaultSpan(),
		MaxUpdatesSec: cfg.Render.MaxUpdatesPerSec,
		Burst:         cfg.Render.Burst,
	})

	// Track resolution and intake
	ytConfig := youtube.Config{
		YtdlpPath:     cfg.YouTube.YtdlpPath,
		Format:        cfg.YouTube.Format,
		Proxy:         cfg.YouTube.Proxy,
		UseMusic:      cfg.YouTube.UseMusic,
		PlaylistLimit: cfg.YouTube.PlaylistLimit,
	}
	trackResolver := youtube.NewResolver(ytConfig)

	var spotifyExpander intake.Expander
	if cfg.SpotifyEnabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		spotifyExpander = spotifyClient
	} else {
		zlog.Info().Msg("Spotify credentials not configured, Spotify links will be rejected")
	}
	router := intake.NewRouter(spotifyExpander, youtube.NewExpander(ytConfig))

	notifier := notification.NewManager()
	voiceConnector := voice.NewConnector(voice.Config{
		DefaultSpan: cfg.Render.DefaultSpan(),
		Tick:        cfg.Render.Tick(),
	})

	scheduler := playback.NewScheduler(playback.Config{
		MaxResolveAttempts: cfg.Playback.MaxResolveAttempts,
		ResolveTimeout:     cfg.Playback.ResolveTimeout(),
		CommandBuffer:      cfg.Playback.CommandBuffer,
		EventBuffer:        cfg.Playback.EventBuffer,
	}, playback.Deps{
		Resolver:  trackResolver,
		Connector: sinkConnector{voiceConnector},
		Lyrics:    lyricsResolver,
		Renderer:  renderer,
		Targets:   notifier,
		Log:       notifier,
	})

	stopEvents := make(chan struct{})
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		forwardEvents(scheduler.Events(), notifier, stopEvents)
	}()

	// Create RPC service
	done := make(chan struct{})
	service := apiconnect.NewPlayerService(scheduler, router, notifier, cfg, done)

	mux := http.NewServeMux()
	path, handler := apiconnect.NewPlayerServiceHandler(
		service,
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Control.Token)),
	)
	mux.Handle(path, handler)

	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// End watch streams first so Shutdown does not wait on them
	close(done)

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	scheduler.Close(shutdownCtx)
	if n := voiceConnector.Active(); n > 0 {
		zlog.Warn().Msgf("Voice outputs still connected after shutdown: count=%d", n)
	}
	close(stopEvents)
	<-eventsDone
	notifier.Close()

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// sinkConnector adapts the voice connector to the scheduler's sink interface.
type sinkConnector struct {
	connector *voice.Connector
}

func (c sinkConnector) Connect(ctx context.Context, sessionID snowflake.ID) (playback.Sink, error) {
	sink, err := c.connector.Connect(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// forwardEvents logs scheduler events and relays them to watchers until stop
// is closed. Events already buffered at that point are still relayed.
func forwardEvents(events <-chan playback.Event, notifier *notification.Manager, stop <-chan struct{}) {
	for {
		select {
		case e := <-events:
			relayEvent(e, notifier)
		case <-stop:
			for {
				select {
				case e := <-events:
					relayEvent(e, notifier)
				default:
					return
				}
			}
		}
	}
}

func relayEvent(e playback.Event, notifier *notification.Manager) {
	l := logger.Session(e.SessionID)
	switch {
	case e.Err != nil:
		l.Warn().Msgf("Playback event: type=%s state=%s err=%v", e.Type, e.State, e.Err)
	case e.Track != nil:
		l.Info().Msgf("Playback event: type=%s state=%s title=%q", e.Type, e.State, e.Track.Title)
	default:
		l.Info().Msgf("Playback event: type=%s state=%s", e.Type, e.State)
	}
	notifier.Broadcast(notification.FromEvent(e))
}

// printConfigSummary prints the effective configuration.
func printConfigSummary(cfg *config.Config) {
	fmt.Println("Config OK")
	fmt.Printf("  %-20s %s\n", "addr", cfg.Server.Addr)
	fmt.Printf("  %-20s %v\n", "spotify", cfg.SpotifyEnabled())
	fmt.Printf("  %-20s %v\n", "youtube music", cfg.YouTube.UseMusic)
	fmt.Printf("  %-20s %s\n", "romaji", cfg.Lyrics.Romaji)
	fmt.Println("  lyrics providers:")
	for _, p := range cfg.Lyrics.Providers {
		fmt.Printf("    %-18s enabled=%v\n", p.Type, p.Enabled)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
