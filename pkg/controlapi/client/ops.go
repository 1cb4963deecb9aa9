package client

import (
	"fmt"
	"strconv"

	"github.com/rina-go/rinad/pkg/dtconst"
)

// Result mirrors pkg/controlapi.Result's wire shape.
type Result struct {
	OK      bool
	Message string
}

func (r Result) err() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("controlapi: %s", r.Message)
}

// FlowInfo mirrors one row of pkg/controlapi.Ops.FlowList's wire shape.
type FlowInfo struct {
	PortID uint32
	State  int32
	Owner  uint32
}

// FlowList lists every flow known to the daemon's KFA.
func (c *Client) FlowList() ([]FlowInfo, error) {
	var flows []FlowInfo
	if err := c.get("/api/v1/flows", &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// FlowDestroy deallocates portID.
func (c *Client) FlowDestroy(portID uint32) error {
	var res Result
	if err := c.delete(fmt.Sprintf("/api/v1/flows/%d", portID), &res); err != nil {
		return err
	}
	return res.err()
}

// ConnectionInfo mirrors ipcp.ConnectionInfo's wire shape.
type ConnectionInfo struct {
	PortID uint32
	CEPID  uint32
}

// ConnDump lists the active port-id/cep-id bindings on ipcID.
func (c *Client) ConnDump(ipcID uint16) ([]ConnectionInfo, error) {
	var conns []ConnectionInfo
	if err := c.get(fmt.Sprintf("/api/v1/ipc/%d/connections", ipcID), &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// PFFEntry is one row of ipcID's PDU Forwarding Function table.
type PFFEntry struct {
	DestAddr    uint64
	NextHopPort uint32
}

// PFFDump lists ipcID's PDU Forwarding Function table.
func (c *Client) PFFDump(ipcID uint16) ([]PFFEntry, error) {
	var raw map[string]uint32
	if err := c.get(fmt.Sprintf("/api/v1/ipc/%d/pff", ipcID), &raw); err != nil {
		return nil, err
	}

	entries := make([]PFFEntry, 0, len(raw))
	for k, v := range raw {
		addr, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("controlapi: malformed pff key %q: %w", k, err)
		}
		entries = append(entries, PFFEntry{DestAddr: addr, NextHopPort: v})
	}
	return entries, nil
}

// AssignToDIF assigns ipcID to a DIF with the given name and Data
// Transfer Constants profile.
func (c *Client) AssignToDIF(ipcID uint16, name string, dt dtconst.DataTransferConstants) error {
	req := struct {
		Name string                         `json:"name"`
		DT   dtconst.DataTransferConstants `json:"dt"`
	}{Name: name, DT: dt}

	var res Result
	if err := c.post(fmt.Sprintf("/api/v1/dif/%d/assign", ipcID), req, &res); err != nil {
		return err
	}
	return res.err()
}
