package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gcir/gms/internal/server"
	"github.com/gcir/gms/pkg/configuration"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bootCtx, bootCancel := context.WithTimeout(ctx, 5*time.Second)
	defer bootCancel()
	rt, err := server.Bootstrap(bootCtx, conf)
	if err != nil {
		log.Fatalf("failed to bootstrap: %v", err)
	}
	defer rt.Close()

	if err := server.Serve(ctx, rt); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
