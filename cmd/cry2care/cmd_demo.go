package main

import (
	"fmt"

	"cry2care/internal/demo"
	"cry2care/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	demoAddr string
	demoSeed int
)

// demoBackendCmd serves an in-memory stand-in for the classification API
var demoBackendCmd = &cobra.Command{
	Use:   "demo-backend",
	Short: "Run an in-memory stand-in for the classification backend",
	Long: `Serves GET /api/, /api/health, /api/logs and POST /api/predict with canned
classifications, so the dashboard can be tried without the model service.
Point the client at it with --api http://localhost:5000/api (the default).`,
	Args: cobra.NoArgs,
	RunE: runDemoBackend,
}

func init() {
	demoBackendCmd.Flags().StringVar(&demoAddr, "addr", ":5000", "Listen address")
	demoBackendCmd.Flags().IntVar(&demoSeed, "seed", 6, "Synthetic records to start with")
}

func runDemoBackend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	srv := demo.New(demo.WithLogger(logging.Get(logging.CategoryDemo)))
	if demoSeed > 0 {
		srv.Seed(demoSeed)
	}
	logger.Info("demo backend listening", zap.String("addr", demoAddr), zap.Int("seeded", demoSeed))
	fmt.Printf("Demo backend on %s (Ctrl+C to stop)\n", demoAddr)
	return srv.ListenAndServe(ctx, demoAddr)
}
