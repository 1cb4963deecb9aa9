package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rina-go/rinad/internal/logger"
	"github.com/rina-go/rinad/internal/telemetry"
	"github.com/rina-go/rinad/pkg/config"
	"github.com/rina-go/rinad/pkg/controlapi"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/efcp"
	"github.com/rina-go/rinad/pkg/ipcp"
	"github.com/rina-go/rinad/pkg/kipcm"
	"github.com/rina-go/rinad/pkg/metrics"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/spf13/cobra"

	// Registers Prometheus-backed constructors against pkg/metrics's
	// indirection layer; see pkg/metrics/prometheus's init() functions.
	_ "github.com/rina-go/rinad/pkg/metrics/prometheus"
)

var foreground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rinad daemon",
	Long: `Start the KIPCM, its registered IPC process factories, and the
control-API surface (gRPC ControlService + chi JSON façade).

Examples:
  # Start in foreground
  rinad start

  # Start with a custom config file
  rinad start --config /etc/rinad/config.yaml

  # Override logging via environment
  RINAD_LOGGING_LEVEL=DEBUG rinad start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", true, "Run in the foreground (rinad does not background itself)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "rinad",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "rinad",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("rinad starting", "version", Version, "commit", Commit)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port))
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	k := newKIPCM(cfg.DIF)
	if cfg.Metrics.Enabled {
		k.SetMetrics(metrics.NewKIPCMMetrics())
		k.KFA().SetMetrics(metrics.NewKFAMetrics())
	}

	controlSrv, err := controlapi.NewServer(cfg.ControlAPI, k)
	if err != nil {
		return fmt.Errorf("failed to create control-API server: %w", err)
	}

	controlDone := make(chan error, 1)
	go func() { controlDone <- controlSrv.Start(ctx) }()
	logger.Info("control-API server configured",
		"grpc_address", cfg.ControlAPI.GRPCAddress,
		"http_address", cfg.ControlAPI.HTTPAddress)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("rinad is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-controlDone; err != nil {
			logger.Error("control-API shutdown error", "error", err)
		}
	case err := <-controlDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("control-API server error", "error", err)
			return err
		}
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	logger.Info("rinad stopped")
	return nil
}

// newKIPCM builds a KIPCM with the two IPC process factories this daemon
// ships: a loopback Shim for local testing/bring-up, and a full Normal
// IPCP stack wired with a fresh EFCP container per instance. dt is the
// daemon-wide default DIF profile every Normal IPCP starts from, absent
// an explicit assign-to-dif override via the control API.
func newKIPCM(dt dtconst.DataTransferConstants) *kipcm.KIPCM {
	dtconst.ApplyDefaults(&dt)
	k := kipcm.New(dt.PortIDWidth)

	_ = k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	})

	_ = k.RegisterFactory("normal", func(name string) (ipcp.Instance, error) {
		dtCopy := dt
		table := pci.NewOffsetTable(dtCopy)
		container := efcp.NewContainer(&dtCopy, table, func(*du.DU) error { return nil })
		container.SetMetrics(metrics.NewDTPMetrics(), metrics.NewDTCPMetrics())
		return ipcp.NewNormal(name, k.KFA(), container), nil
	})

	return k
}
