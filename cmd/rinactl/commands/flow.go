package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rina-go/rinad/cmd/rinactl/cmdutil"
	"github.com/rina-go/rinad/internal/cli/output"
	"github.com/rina-go/rinad/pkg/controlapi/client"
	"github.com/rina-go/rinad/pkg/kfa"
	"github.com/spf13/cobra"
)

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Inspect and manage flows known to the daemon's KFA",
}

var flowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flows as a table",
	RunE:  runFlowList,
}

var flowDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump every flow's full state",
	RunE:  runFlowDump,
}

var flowDestroyCmd = &cobra.Command{
	Use:   "destroy <port-id>",
	Short: "Deallocate a flow by port-id",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlowDestroy,
}

func init() {
	flowCmd.AddCommand(flowListCmd)
	flowCmd.AddCommand(flowDumpCmd)
	flowCmd.AddCommand(flowDestroyCmd)
}

func runFlowList(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}
	flows, err := c.FlowList()
	if err != nil {
		return err
	}
	return cmdutil.PrintResource(os.Stdout, flows, flowTable(flows))
}

// runFlowDump prints the same data as flow list, but always as a
// structured document rather than a table; useful for scripting.
func runFlowDump(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}
	flows, err := c.FlowList()
	if err != nil {
		return err
	}
	return output.PrintJSON(os.Stdout, flows)
}

func runFlowDestroy(cmd *cobra.Command, args []string) error {
	portID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid port-id %q: %w", args[0], err)
	}
	c, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}
	if err := c.FlowDestroy(uint32(portID)); err != nil {
		return err
	}
	fmt.Printf("Flow %d destroyed\n", portID)
	return nil
}

func flowTable(flows []client.FlowInfo) *output.TableData {
	t := output.NewTableData("PORT ID", "STATE", "OWNER")
	for _, f := range flows {
		t.AddRow(strconv.FormatUint(uint64(f.PortID), 10), flowStateName(f.State), strconv.FormatUint(uint64(f.Owner), 10))
	}
	return t
}

func flowStateName(state int32) string {
	switch kfa.FlowState(state) {
	case kfa.FlowStateNull:
		return "null"
	case kfa.FlowStatePending:
		return "pending"
	case kfa.FlowStateAllocated:
		return "allocated"
	case kfa.FlowStateDisabled:
		return "disabled"
	case kfa.FlowStateDeallocated:
		return "deallocated"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}
