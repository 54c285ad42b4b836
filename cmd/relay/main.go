package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"room-relay/contract"
	"room-relay/internal"
	"room-relay/repositories"
	"room-relay/runtime"
	"room-relay/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the relay lifecycle so
// that defers execute before the process exits and shutdown stays
// graceful for the background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Store & Relay
	store := repositories.NewBadgerStore(log, config.BadgerFilepath)
	relay := runtime.NewRelay(log, store, config.RoomCode)

	relay.OnReady(func(roomCode string) {
		color.Cyan.Printf("Room code: %s\n", roomCode)
	})
	relay.OnMessage(func(payload string) {
		color.Green.Printf("<< %s\n", payload)
	})
	relay.OnFault(func(err error) {
		if err != nil {
			color.Red.Printf("Relay faulted: %v\n", err)
			return
		}
		color.Red.Println("Relay stopped unexpectedly")
	})

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relay.Start(ctx); err != nil {
		return fmt.Errorf("relay failed to start: %w", err)
	}

	// 4. Tick workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewMonitorWorker(log, contract.CheckerFunc(relay.CheckSubscription), config.MonitorInterval),
		workers.NewHealthWorker(log, config.HealthInterval, func() string {
			return relay.State().String()
		}),
	)
	go sup.Run(ctx)

	// 5. Producer: stdin lines are appended directly to the store,
	// bypassing the relay (writers never go through the read path).
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		col := store.Collection()
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if id := col.AppendMessage(ctx, relay.RoomCode(), line); id == nil {
				color.Red.Println("Send failed, see logs")
			}
		}
	}()

	// 6. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	sup.Stop()
	relay.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
