package main

import (
	"context"
	"fmt"
	"time"

	"cry2care/internal/api"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// statusCmd checks the backend and the local recorder
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend uplink and microphone recorder",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	parent, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(parent, 10*time.Second)
	defer cancelTimeout()

	client := newClient()
	var (
		health  api.Health
		info    api.ServiceInfo
		infoErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		health, err = client.Health(gctx)
		return err
	})
	g.Go(func() error {
		// the index is informational; its failure does not fail the check
		info, infoErr = client.Index(gctx)
		return nil
	})
	healthErr := g.Wait()

	fmt.Println("cry2care status")
	fmt.Printf("  Backend:   %s\n", client.BaseURL())
	if healthErr != nil {
		fmt.Printf("  Uplink:    ✗ OFFLINE (%v)\n", healthErr)
	} else {
		fmt.Printf("  Uplink:    ✓ %s (%s)\n", health.Status, health.Message)
	}
	if infoErr == nil && info.Name != "" {
		fmt.Printf("  Service:   %s %s\n", info.Name, info.Version)
	}

	recorder := newRecorder()
	if recorder.Available() {
		fmt.Printf("  Recorder:  ✓ %s\n", recorder.Tool)
	} else {
		fmt.Printf("  Recorder:  ✗ %s not found in PATH\n", recorder.Tool)
	}
	fmt.Printf("  Threshold: severity > %.1f\n", cfg.Thresholds.DistressAlert)
	fmt.Printf("  Config:    %s\n", resolvedConfigPath())

	if healthErr != nil {
		return fmt.Errorf("backend unreachable: %w", healthErr)
	}
	return nil
}
