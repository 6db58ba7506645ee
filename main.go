package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/robertkozin/wizardconvert/archive"
	"github.com/robertkozin/wizardconvert/bot"
	"github.com/robertkozin/wizardconvert/convert"
	"github.com/robertkozin/wizardconvert/extract"
	"github.com/robertkozin/wizardconvert/media"
	"github.com/robertkozin/wizardconvert/tr"
	"github.com/robertkozin/wizardconvert/web"
	"github.com/robertkozin/wizardconvert/workdir"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "wizardconvert",
		Usage: "convert YouTube videos to mp3 or mp4",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the web server, the cleanup scheduler and optionally the discord bot",
				Action: serve,
			},
			{
				Name:      "convert",
				Usage:     "convert a single video from the command line",
				ArgsUsage: "URL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: string(media.MP3),
						Usage: "output `FORMAT`, mp3 or mp4",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "Netscape cookie jar `FILE` to pass to the extractor",
					},
					&cli.StringFlag{
						Name:  "out",
						Value: ".",
						Usage: "save the converted file to `DIR`",
					},
				},
				Action: convertOne,
			},
			{
				Name:   "cleanup",
				Usage:  "remove stale working directories once and exit",
				Action: cleanupOnce,
			},
		},
		Action:          serve,
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("wizardconvert", "err", err)
		os.Exit(1)
	}
}

type deps struct {
	cfg      Config
	logger   *slog.Logger
	shutdown func()
}

func setup(ctx context.Context) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	shutdown, err := tr.Init(ctx, "wizardconvert")
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
		shutdown = func() {}
	}

	return &deps{cfg: cfg, logger: logger, shutdown: shutdown}, nil
}

func newExtractClient(cfg Config, logger *slog.Logger) (extract.Client, error) {
	path, err := exec.LookPath(cfg.YTDLPPath)
	if err != nil {
		return nil, fmt.Errorf("missing in path: %s: %w", cfg.YTDLPPath, err)
	}

	opts := extract.DefaultOptions()
	opts.Executable = path
	fetcher := extract.NewYTDLP(opts, logger)

	if cfg.ProbeBackend == "native" {
		return extract.Backend{Prober: extract.NewNativeProber(opts, logger), Fetcher: fetcher}, nil
	}
	return fetcher, nil
}

func serve(c *cli.Context) error {
	ctx := c.Context
	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.shutdown()
	cfg, logger := rt.cfg, rt.logger

	client, err := newExtractClient(cfg, logger)
	if err != nil {
		return err
	}
	converter := convert.New(client, cfg.HeartbeatInterval, logger)

	store := workdir.Store{Root: cfg.TempDir}
	if err := os.MkdirAll(store.Root, os.ModePerm); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	var mirror *archive.Mirror
	if u, _ := cfg.archiveURL(); u != nil {
		dest, err := archive.NewDestination(ctx, u)
		if err != nil {
			return fmt.Errorf("archive destination: %w", err)
		}
		defer dest.Close()
		mirror = archive.NewMirror(dest, logger)
		logger.Info("archiving conversions", "destination", dest.String())
	}

	scheduler := &workdir.Scheduler{
		Root:     store.Root,
		MaxAge:   cfg.MaxAge,
		Interval: cfg.CleanupInterval,
		Logger:   logger.With("component", "cleanup"),
	}
	go scheduler.Run(ctx)

	if parseLevel(cfg.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &web.Server{
		Converter: converter,
		Workdirs:  store,
		Sessions:  web.NewCookieSessions(cfg.SessionSecret, int(cfg.MaxAge.Seconds())),
		Logger:    logger.With("component", "web"),
	}
	if mirror != nil {
		server.Archive = mirror
	}

	if cfg.DiscordToken != "" {
		discord := &bot.Discord{
			Token:     cfg.DiscordToken,
			PublicURL: cfg.PublicURL,
			Converter: converter,
			Workdirs:  store,
			Logger:    logger.With("component", "discord"),
		}
		if mirror != nil {
			discord.Archive = mirror
		}
		if err := discord.Start(); err != nil {
			return fmt.Errorf("starting discord bot: %w", err)
		}
		defer discord.Close()
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "httpServer started", "addr", httpServer.Addr, "temp_dir", store.Root)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.InfoContext(ctx, "shutting down httpServer")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func convertOne(c *cli.Context) error {
	ctx := c.Context
	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	rawURL := c.Args().First()
	if rawURL == "" {
		return cli.Exit("No YouTube URL provided", 2)
	}
	if !media.ValidateURL(rawURL) {
		return cli.Exit("Invalid YouTube URL", 2)
	}
	format, ok := media.ParseFormat(c.String("format"))
	if !ok {
		return cli.Exit("Invalid format. Choose either mp3 or mp4", 2)
	}

	client, err := newExtractClient(rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	converter := convert.New(client, rt.cfg.HeartbeatInterval, rt.logger)

	out := c.String("out")
	// convert in a private directory so the output scan only sees our file
	dir := filepath.Join(out, ".wizardconvert-"+uuid.NewString())
	defer os.RemoveAll(dir)

	bar := progressbar.DefaultBytes(-1, "downloading")
	res, err := converter.Convert(ctx, convert.Request{
		URL:     rawURL,
		Format:  format,
		Dir:     dir,
		Cookies: c.String("cookies"),
		Progress: func(downloaded, total int64) {
			if total > 0 && bar.GetMax64() != total {
				bar.ChangeMax64(total)
			}
			_ = bar.Set64(downloaded)
		},
	})
	_ = bar.Finish()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	target := filepath.Join(out, filepath.Base(res.FilePath))
	if err := os.Rename(res.FilePath, target); err != nil {
		return fmt.Errorf("moving converted file: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%s\n", target)
	return nil
}

func cleanupOnce(c *cli.Context) error {
	rt, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	scheduler := &workdir.Scheduler{
		Root:     rt.cfg.TempDir,
		MaxAge:   rt.cfg.MaxAge,
		Interval: rt.cfg.CleanupInterval,
		Logger:   rt.logger.With("component", "cleanup"),
	}
	return scheduler.RunOnce(c.Context)
}
