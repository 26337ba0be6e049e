package main

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"scing/internal/app"
	"scing/internal/bus"
	"scing/internal/config"
	"scing/internal/ipc"
	"scing/internal/logging"
	"scing/internal/metrics"
	"scing/internal/notify"
	"scing/internal/playback"
	"scing/internal/session"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "YAML session config")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	metricsAddr := cli.String("metrics", "", "Serve Prometheus metrics on this address")
	busURL := cli.String("bus", "", "Websocket hub to publish turns to")
	socket := cli.String("socket", ipc.DefaultSocketPath(), "Control socket path")
	cli.Parse()

	logging.Setup(os.Stdout, *logLevel)
	log.Info("Booting up")

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	gwCfg, err := config.GatewayFromProcess(*envFile)
	if err != nil {
		log.Error("Failed to load env", "file", *envFile, "err", err)
		os.Exit(1)
	}
	if !gwCfg.HasCredential() {
		log.Warn("OPENAI_API_KEY not set, replies will ask for it")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	httpClient, err := app.HTTPClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	rec, closeAudio, err := app.Recorder(m)
	if err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer closeAudio()

	spk := playback.NewSpeaker()
	voice, err := app.Vocalizer(cfg.Speech, gwCfg, httpClient, spk)
	if err != nil {
		log.Error("Failed to init speech", "err", err)
		os.Exit(1)
	}

	handle, transcriber := app.Transcriber(cfg.Transcription)

	deps := session.Deps{
		Capture:    rec,
		Transcribe: transcriber,
		Respond:    app.Gateway(gwCfg, httpClient, m),
		Speak:      voice,
		Metrics:    m,
		Resources:  session.Resources{Model: handle, Voice: voice},
	}
	if cfg.Capture.Cue != "" {
		deps.Cue = notify.NewCue(cfg.Capture.Cue, cfg.Speech.Volume, spk)
	}
	if d := app.Ducker(cfg.Ducking); d != nil {
		deps.Ducker = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *busURL != "" {
		b, err := bus.Dial(ctx, *busURL, "scing")
		if err != nil {
			log.Error("Failed to connect to bus", "url", *busURL, "err", err)
			os.Exit(1)
		}
		defer b.Close()
		deps.Publisher = b
	}

	loop := session.New(session.Config{
		ClipDuration:      cfg.Capture.Duration,
		SampleRate:        cfg.Capture.SampleRate,
		ExitPhrases:       cfg.Session.ExitPhrases,
		CaptureTimeout:    cfg.Session.CaptureTimeout,
		TranscribeTimeout: cfg.Session.TranscribeTimeout,
		RespondTimeout:    cfg.Session.RespondTimeout,
	}, deps)
	defer func() {
		if err := loop.Close(); err != nil {
			log.Warn("Failed to release session resources", "err", err)
		}
	}()

	log.Info("Boot up - successful", "model", gwCfg.Model, "stt", handle.Name())

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	g.Go(func() error {
		// the loop ending stops the control socket and metrics server
		defer stop()
		return loop.Run(runCtx)
	})

	g.Go(func() error {
		return ipc.Serve(gctx, *socket, func(msg ipc.ControlMessage) ipc.ControlReply {
			switch msg.Cmd {
			case ipc.CmdStop:
				log.Info("Stop requested over control socket")
				cancelRun()
				return ipc.ControlReply{OK: true, State: loop.State().String()}
			case ipc.CmdStatus:
				return ipc.ControlReply{OK: true, State: loop.State().String()}
			default:
				log.Warn("Unknown command", "cmd", msg.Cmd)
				return ipc.ControlReply{Error: "unknown command " + msg.Cmd}
			}
		})
	})

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metrics.Handler(reg)}
		g.Go(func() error {
			log.Info("Serving metrics", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Session failed", "err", err)
		os.Exit(1)
	}

	log.Info("Session ended", "state", loop.State())
}
