package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/rina-go/rinad/cmd/rinactl/cmdutil"
	"github.com/rina-go/rinad/internal/bytesize"
	"github.com/rina-go/rinad/internal/cli/output"
	"github.com/rina-go/rinad/internal/cli/prompt"
	"github.com/rina-go/rinad/pkg/config"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/spf13/cobra"
)

var difInitForce bool

var difCmd = &cobra.Command{
	Use:   "dif",
	Short: "Build and install the rinad daemon's DIF profile and config file",
}

var difInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively build a DIF profile and write the daemon's config file",
	Long: `Walks through the Data-Transfer Constants a DIF operates with — field
widths, size limits, and behavioral flags — together with the ambient
daemon settings (control-API addresses, logging, metrics), and writes the
result to the daemon's default config file.

rinad refuses to start without a config file at that location, so this is
normally the first command run on a fresh node.`,
	RunE: runDIFInit,
}

func init() {
	difInitCmd.Flags().BoolVar(&difInitForce, "force", false, "overwrite an existing config file")
	difCmd.AddCommand(difInitCmd)
}

func runDIFInit(cmd *cobra.Command, args []string) error {
	path := config.GetDefaultConfigPath()
	if config.DefaultConfigExists() && !difInitForce {
		overwrite, err := prompt.Confirm(fmt.Sprintf("Config file already exists at %s. Overwrite?", path), false)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		if !overwrite {
			fmt.Println("Aborted")
			return nil
		}
	}

	dt, err := promptDIFProfile()
	if err != nil {
		return cmdutil.HandleAbort(err)
	}

	cfg := config.GetDefaultConfig()
	cfg.DIF = dt

	grpcAddr, err := prompt.Input("Control-API gRPC address", cfg.ControlAPI.GRPCAddress)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	cfg.ControlAPI.GRPCAddress = grpcAddr

	httpAddr, err := prompt.Input("Control-API HTTP address", cfg.ControlAPI.HTTPAddress)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	cfg.ControlAPI.HTTPAddress = httpAddr

	secret, err := prompt.InputWithValidation("JWT signing secret (min 32 chars, blank to generate)", func(s string) error {
		if s != "" && len(s) < 32 {
			return fmt.Errorf("must be at least 32 characters")
		}
		return nil
	})
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if secret == "" {
		secret = generateSecret()
	}
	cfg.ControlAPI.JWTSecret = secret

	logLevel, err := prompt.SelectString("Log level", []string{"DEBUG", "INFO", "WARN", "ERROR"})
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	cfg.Logging.Level = logLevel

	metricsEnabled, err := prompt.Confirm("Enable Prometheus metrics endpoint?", true)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	cfg.Metrics.Enabled = metricsEnabled
	if metricsEnabled {
		port, err := prompt.InputPort("Metrics port", 9090)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		cfg.Metrics.Port = port
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("\nWrote %s\n\n", path)
	return output.PrintTable(os.Stdout, difSummaryTable(cfg))
}

// promptDIFProfile walks the operator through dtconst.DataTransferConstants,
// offering IRATI's default DIF profile as the starting point.
func promptDIFProfile() (dtconst.DataTransferConstants, error) {
	dt := dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(&dt)

	usePreset, err := prompt.Confirm("Use the default DIF profile (2-byte addresses, 4-byte sequence numbers)?", true)
	if err != nil {
		return dt, err
	}
	if usePreset {
		maxPDU, err := prompt.Input("Max PDU size", dt.MaxPDUSize.String())
		if err != nil {
			return dt, err
		}
		size, err := bytesize.ParseByteSize(maxPDU)
		if err != nil {
			return dt, fmt.Errorf("invalid max PDU size: %w", err)
		}
		dt.MaxPDUSize = size
		dt.MaxSDUSize = size
		return dt, nil
	}

	width, err := promptFieldWidth("Address width (bytes)", dt.AddressWidth)
	if err != nil {
		return dt, err
	}
	dt.AddressWidth = width

	width, err = promptFieldWidth("QoS-id width (bytes)", dt.QosIDWidth)
	if err != nil {
		return dt, err
	}
	dt.QosIDWidth = width

	width, err = promptFieldWidth("CEP-id width (bytes)", dt.CepIDWidth)
	if err != nil {
		return dt, err
	}
	dt.CepIDWidth = width

	width, err = promptFieldWidth("Port-id width (bytes)", dt.PortIDWidth)
	if err != nil {
		return dt, err
	}
	dt.PortIDWidth = width

	width, err = promptFieldWidth("Length field width (bytes)", dt.LengthWidth)
	if err != nil {
		return dt, err
	}
	dt.LengthWidth = width

	width, err = promptFieldWidth("Sequence number width (bytes)", dt.SeqNumWidth)
	if err != nil {
		return dt, err
	}
	dt.SeqNumWidth = width

	maxPDU, err := prompt.Input("Max PDU size", dt.MaxPDUSize.String())
	if err != nil {
		return dt, err
	}
	size, err := bytesize.ParseByteSize(maxPDU)
	if err != nil {
		return dt, fmt.Errorf("invalid max PDU size: %w", err)
	}
	dt.MaxPDUSize = size
	dt.MaxSDUSize = size

	mpl, err := prompt.InputInt("Max PDU lifetime (ms)", int(dt.MaxPDULifeMs))
	if err != nil {
		return dt, err
	}
	dt.MaxPDULifeMs = uint32(mpl)

	fragmentation, err := prompt.Confirm("Enable delimiter fragmentation?", dt.DIFFragmentation)
	if err != nil {
		return dt, err
	}
	dt.DIFFragmentation = fragmentation

	return dt, nil
}

func promptFieldWidth(label string, defaultValue uint8) (uint8, error) {
	value, err := prompt.InputInt(label, int(defaultValue))
	if err != nil {
		return 0, err
	}
	switch value {
	case 1, 2, 4:
		return uint8(value), nil
	default:
		return 0, fmt.Errorf("%s must be 1, 2 or 4", label)
	}
}

// generateSecret produces a JWT signing secret when the operator doesn't
// supply one. The summary table shows it masked; the full value is only in
// the written config file.
func generateSecret() string {
	return fmt.Sprintf("rinad-%d-%d", os.Getpid(), time.Now().UnixNano())
}

func difSummaryTable(cfg *config.Config) *output.TableData {
	t := output.NewTableData("SETTING", "VALUE")
	t.AddRow("address_width", fmt.Sprintf("%d", cfg.DIF.AddressWidth))
	t.AddRow("seq_num_width", fmt.Sprintf("%d", cfg.DIF.SeqNumWidth))
	t.AddRow("max_pdu_size", cfg.DIF.MaxPDUSize.String())
	t.AddRow("max_pdu_life_ms", fmt.Sprintf("%d", cfg.DIF.MaxPDULifeMs))
	t.AddRow("grpc_address", cfg.ControlAPI.GRPCAddress)
	t.AddRow("http_address", cfg.ControlAPI.HTTPAddress)
	t.AddRow("jwt_secret", maskSecret(cfg.ControlAPI.JWTSecret))
	t.AddRow("log_level", cfg.Logging.Level)
	if cfg.Metrics.Enabled {
		t.AddRow("metrics_port", fmt.Sprintf("%d", cfg.Metrics.Port))
	}
	return t
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
