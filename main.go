package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cupogo/andvari/utils/zlog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/services/ingest"
	"github.com/liut/parley/pkg/services/stores"
	"github.com/liut/parley/pkg/settings"
	"github.com/liut/parley/pkg/web"
)

func main() {
	var zlogger *zap.Logger
	if settings.InDevelop() {
		zlogger, _ = zap.NewDevelopment()
	} else {
		zlogger, _ = zap.NewProduction()
	}
	defer func() { _ = zlogger.Sync() }()
	sugar := zlogger.Sugar()
	zlog.Set(sugar)

	app := &cli.App{
		Name:    strings.ToLower(settings.Name),
		Usage:   "chat with a generative model from the browser",
		Version: settings.Current.Version,
		Action:  runWeb,
		Commands: []*cli.Command{
			{
				Name:   "web",
				Usage:  "run the web front-end",
				Action: runWeb,
			},
			{
				Name:      "ask",
				Usage:     "send one prompt and print the answer",
				ArgsUsage: "<prompt>",
				Action:    runAsk,
			},
			{
				Name:  "usage",
				Usage: "show environment settings",
				Action: func(*cli.Context) error {
					return settings.Usage()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		sugar.Errorw("exit", "err", err)
		os.Exit(1)
	}
}

func loadAI(ctx context.Context) (stores.InteractAI, *aigc.Preset, error) {
	cfg := settings.Current
	preset, err := stores.LoadPreset(cfg.PresetFile)
	if err != nil {
		return nil, nil, err
	}
	ai, err := stores.NewInteractAI(ctx, cfg, preset)
	if err != nil {
		return nil, nil, err
	}
	return ai, preset, nil
}

func runAsk(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if len(prompt) == 0 {
		return aigc.ErrEmptyPrompt
	}
	ai, preset, err := loadAI(c.Context)
	if err != nil {
		return err
	}
	defer ai.Close()

	answer, err := ai.Generate(c.Context, preset.Preamble()+aigc.ComposeContext(nil, nil, prompt))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, answer)
	return nil
}

func runWeb(c *cli.Context) error {
	cfg := settings.Current
	sugar := zlog.Get()

	ai, preset, err := loadAI(c.Context)
	if err != nil {
		return err
	}
	defer ai.Close()

	sto, err := stores.NewSessionStore(cfg)
	if err != nil {
		return err
	}
	var rc stores.RedisClient
	if cfg.SessionBackend == settings.BackendRedis {
		rc = stores.SgtRC()
	}

	srv, err := web.New(web.Config{
		Addr:  cfg.HTTPListen,
		Debug: settings.InDevelop(),

		AI:       ai,
		Sessions: sto,
		Extractor: &ingest.Extractor{
			OCR:         ai,
			Transcriber: ai,
			Transcoder:  ingest.FFmpeg{Bin: cfg.FFmpegPath},
			AudioFormat: cfg.AudioFormat,
			MaxPixels:   cfg.MaxPixels,
		},
		Scratch: &ingest.Scratch{Dir: cfg.UploadDir},
		Preset:  preset,

		MaxUploadBytes: cfg.MaxUploadBytes(),
		PredictRate:    cfg.PredictRate,
		RedisClient:    rc,

		CookieName:   cfg.CookieName,
		CookiePath:   cfg.CookiePath,
		CookieDomain: cfg.CookieDomain,
		CookieMaxAge: cfg.CookieMaxAge,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		return err
	}
	sugar.Infow("starting", "provider", cfg.Provider(), "model", cfg.ChatModel,
		"session", cfg.SessionBackend, "version", cfg.Version)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(context.Background()) }()

	select {
	case err = <-errc:
		return err
	case <-ctx.Done():
	}
	sugar.Info("shuting down server...")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Stop(sctx); err != nil {
		sugar.Infow("server shutdown:", "err", err)
	}
	return <-errc
}
