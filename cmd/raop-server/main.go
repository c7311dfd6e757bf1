package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alxayo/raop-go/internal/logger"
	"github.com/alxayo/raop-go/internal/rsakey"
	srv "github.com/alxayo/raop-go/internal/server"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	log := logger.Logger().With("component", "cli")

	server := srv.New(srv.Config{
		Name:   cfg.Name,
		Port:   cfg.Port,
		HWAddr: cfg.HWAddr,
		Key:    rsakey.Key(),
	}, log)

	addr, err := server.Start()
	if err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	log.Info(fmt.Sprintf("Lets rock on %s!", addr), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Wait(ctx.Done())
	log.Info("server stopped cleanly")
}
