package main

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"scing/internal/app"
	"scing/internal/config"
	"scing/internal/logging"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	cli.Parse()

	logging.Setup(os.Stderr, *logLevel)

	text := strings.Join(cli.Args(), " ")
	if text == "" {
		text = "What are you?"
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

	reply := app.Gateway(gwCfg, httpClient, nil).Respond(context.Background(), text)
	log.Info("Reply", "model", reply.Model, "attempts", reply.Attempts, "degraded", reply.Degraded)

	fmt.Println(reply.Text)
}
