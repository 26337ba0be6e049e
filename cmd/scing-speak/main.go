package main

import (
	"context"
	log "log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/spf13/pflag"

	"scing/internal/app"
	"scing/internal/config"
	"scing/internal/logging"
	"scing/internal/playback"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "YAML session config")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	engine := cli.String("engine", "", "Speech engine, espeak or openai (overrides config)")
	cli.Parse()

	logging.Setup(os.Stdout, *logLevel)

	text := strings.Join(cli.Args(), " ")
	if text == "" {
		text = "Hello. I am Scing."
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *engine != "" {
		cfg.Speech.Engine = *engine
	}

	gwCfg, err := config.GatewayFromProcess(*envFile)
	if err != nil {
		log.Error("Failed to load env", "file", *envFile, "err", err)
		os.Exit(1)
	}

	httpClient, err := app.HTTPClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	voice, err := app.Vocalizer(cfg.Speech, gwCfg, httpClient, playback.NewSpeaker())
	if err != nil {
		log.Error("Failed to init speech", "err", err)
		os.Exit(1)
	}
	defer voice.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := voice.Speak(ctx, text); err != nil {
		log.Error("Failed to voice out", "err", err)
		os.Exit(1)
	}
}
