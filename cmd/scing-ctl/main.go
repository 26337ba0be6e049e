package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"scing/internal/ipc"
)

func main() {
	socket := cli.String("socket", ipc.DefaultSocketPath(), "Control socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: scing-ctl [--socket path] stop|status\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := ipc.CmdStatus
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := ipc.SendCommand(ctx, *socket, cmd)
	if err != nil {
		fmt.Println("scing not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Println("error:", reply.Error)
		os.Exit(1)
	}

	fmt.Println(reply.State)
}
