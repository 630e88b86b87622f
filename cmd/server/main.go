package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"leaveportal/internal/app/server"
	"leaveportal/internal/platform/version"
)

func main() {
	showVersion := pflag.BoolP("version", "v", false, "print build information and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Info().String())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
