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

var pffIPCID uint16

var pffCmd = &cobra.Command{
	Use:   "pff",
	Short: "Inspect the PDU Forwarding Function table on a Normal IPC process",
}

var pffDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the destination-address / next-hop-port table for an IPC process",
	RunE:  runPFFDump,
}

func init() {
	pffDumpCmd.Flags().Uint16Var(&pffIPCID, "ipc", 0, "IPC process id (required)")
	_ = pffDumpCmd.MarkFlagRequired("ipc")
	pffCmd.AddCommand(pffDumpCmd)
}

func runPFFDump(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}
	entries, err := c.PFFDump(pffIPCID)
	if err != nil {
		return fmt.Errorf("pff dump failed: %w", err)
	}
	return cmdutil.PrintResource(os.Stdout, entries, pffTable(entries))
}

func pffTable(entries []client.PFFEntry) *output.TableData {
	t := output.NewTableData("DEST ADDR", "NEXT HOP PORT")
	for _, e := range entries {
		t.AddRow(strconv.FormatUint(e.DestAddr, 10), strconv.FormatUint(uint64(e.NextHopPort), 10))
	}
	return t
}
