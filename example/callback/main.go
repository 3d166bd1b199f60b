package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/VibraFlow/pkg/vibraflow"
)

func main() {
	cfg, err := vibraflow.DefaultConfig(vibraflow.ModePoll)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.Device.Host = "192.168.1.19"

	flow, err := vibraflow.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("flow: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(s vibraflow.Snapshot) {
		n := len(s.X)
		if n == 0 {
			fmt.Printf("%-12s no samples %v\n", s.Status.State, s.Errors)
			return
		}
		fmt.Printf("%-12s %s x=%.3f y=%.3f z=%.3f peak=%.1fHz rpm=%.0f\n",
			s.Status.State, s.Labels[n-1], s.X[n-1], s.Y[n-1], s.Z[n-1], s.PeakFrequency, s.EstimatedRPM)
	}

	if err := flow.Run(ctx, vibraflow.ObserveCallback(callback)); err != nil && err != context.Canceled {
		log.Fatalf("monitor error: %v", err)
	}
}
