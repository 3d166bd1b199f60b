package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"slices"
	"syscall"

	"github.com/ghalamif/VibraFlow"
)

func main() {
	flow, err := vibraflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subscriber, snapshots, closeSnapshots := vibraflow.NewChannelSubscriber(4)
	defer closeSnapshots()

	go render("spectrum", snapshots)

	if err := flow.Run(ctx, vibraflow.ObserveCallback(subscriber)); err != nil && err != context.Canceled {
		log.Fatalf("monitor error: %v", err)
	}
}

// render prints the strongest bin of each new spectrum.
func render(name string, snapshots <-chan vibraflow.Snapshot) {
	var prev []float64
	for s := range snapshots {
		if s.Spectrum.Len() == 0 || slices.Equal(prev, s.Spectrum.Mags) {
			continue
		}
		prev = s.Spectrum.Mags

		best := 0
		for i, m := range s.Spectrum.Mags {
			if m > s.Spectrum.Mags[best] {
				best = i
			}
		}
		fmt.Printf("[%s] %d bins, strongest %s Hz (%.3f), temp %.1fC, up %s\n",
			name, s.Spectrum.Len(), s.Spectrum.Labels[best], s.Spectrum.Mags[best], s.Temperature, s.Runtime)
	}
}
