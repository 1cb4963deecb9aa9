package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rina-go/rinad/cmd/rinactl/cmdutil"
	"github.com/rina-go/rinad/internal/cli/output"
	"github.com/rina-go/rinad/pkg/controlapi/client"
	"github.com/spf13/cobra"
)

var connIPCID uint16

var connCmd = &cobra.Command{
	Use:   "conn",
	Short: "Inspect EFCP connections on a Normal IPC process",
}

var connDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump port-id/cep-id bindings for an IPC process",
	RunE:  runConnDump,
}

func init() {
	connDumpCmd.Flags().Uint16Var(&connIPCID, "ipc", 0, "IPC process id (required)")
	_ = connDumpCmd.MarkFlagRequired("ipc")
	connCmd.AddCommand(connDumpCmd)
}

func runConnDump(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}
	conns, err := c.ConnDump(connIPCID)
	if err != nil {
		return fmt.Errorf("conn dump failed: %w", err)
	}
	return cmdutil.PrintResource(os.Stdout, conns, connTable(conns))
}

func connTable(conns []client.ConnectionInfo) *output.TableData {
	t := output.NewTableData("PORT ID", "CEP ID")
	for _, c := range conns {
		t.AddRow(strconv.FormatUint(uint64(c.PortID), 10), strconv.FormatUint(uint64(c.CEPID), 10))
	}
	return t
}
