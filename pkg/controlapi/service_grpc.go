package controlapi

import (
	"context"

	"github.com/rina-go/rinad/pkg/controlapi/wire"
	"github.com/rina-go/rinad/pkg/ipcp"
	"google.golang.org/grpc"
)

// ServiceName is the gRPC service name ControlService registers under,
// the Go analogue of the generated `rina.controlapi.ControlService`
// a .proto-based stack would produce — there is no .proto schema here,
// since wire.codec XDR-encodes the Go structs directly.
const ServiceName = "rina.controlapi.ControlService"

// GRPCService implements ControlService: one RPC per control-message
// family, each taking and returning the wire.* structs XDR puts on the
// wire in place of protobuf.
type GRPCService struct {
	ops *Ops
}

// NewGRPCService wraps ops for gRPC dispatch.
func NewGRPCService(ops *Ops) *GRPCService {
	return &GRPCService{ops: ops}
}

func (s *GRPCService) Health(_ context.Context, req *wire.HealthRequest) (*wire.HealthResponse, error) {
	return &wire.HealthResponse{
		Header:     req.Header,
		Result:     wire.Result{OK: true},
		BoundIPCPs: uint32(s.ops.Health()),
	}, nil
}

func (s *GRPCService) AssignToDIF(_ context.Context, req *wire.AssignToDIFRequest) (*wire.AssignToDIFResponse, error) {
	res := s.ops.AssignToDIF(req.IPCPID, ipcp.DIFConfig{Name: req.DIFName, DT: req.DT})
	return &wire.AssignToDIFResponse{Header: req.Header, Result: wire.Result(res)}, nil
}

func (s *GRPCService) IPCCreate(_ context.Context, req *wire.IPCCreateRequest) (*wire.IPCCreateResponse, error) {
	res := s.ops.IPCCreate(req.IPCPID, req.Name, req.FactoryName)
	return &wire.IPCCreateResponse{Header: req.Header, Result: wire.Result(res)}, nil
}

func (s *GRPCService) IPCDestroy(_ context.Context, req *wire.IPCDestroyRequest) (*wire.IPCDestroyResponse, error) {
	res := s.ops.IPCDestroy(req.IPCPID)
	return &wire.IPCDestroyResponse{Header: req.Header, Result: wire.Result(res)}, nil
}

func (s *GRPCService) FlowCreate(_ context.Context, req *wire.FlowCreateRequest) (*wire.FlowCreateResponse, error) {
	portID, res := s.ops.FlowCreate(req.IPCPID, req.MsgBoundaries, int(req.QueueDepth))
	return &wire.FlowCreateResponse{Header: req.Header, Result: wire.Result(res), PortID: portID}, nil
}

func (s *GRPCService) FlowDestroy(_ context.Context, req *wire.FlowDestroyRequest) (*wire.FlowDestroyResponse, error) {
	res := s.ops.FlowDestroy(req.PortID)
	return &wire.FlowDestroyResponse{Header: req.Header, Result: wire.Result(res)}, nil
}

func (s *GRPCService) FlowList(_ context.Context, req *wire.FlowListRequest) (*wire.FlowListResponse, error) {
	rows := s.ops.FlowList()
	flows := make([]wire.FlowInfo, len(rows))
	for i, r := range rows {
		flows[i] = wire.FlowInfo{PortID: r.PortID, State: r.State, Owner: r.Owner}
	}
	return &wire.FlowListResponse{Header: req.Header, Result: wire.Result{OK: true}, Flows: flows}, nil
}

func (s *GRPCService) ConnDump(_ context.Context, req *wire.ConnDumpRequest) (*wire.ConnDumpResponse, error) {
	conns, res := s.ops.ConnDump(req.IPCPID)
	out := make([]wire.ConnInfo, len(conns))
	for i, c := range conns {
		out[i] = wire.ConnInfo{PortID: c.PortID, CEPID: c.CEPID}
	}
	return &wire.ConnDumpResponse{Header: req.Header, Result: wire.Result(res), Conns: out}, nil
}

func (s *GRPCService) PFFDump(_ context.Context, req *wire.PFFDumpRequest) (*wire.PFFDumpResponse, error) {
	pff, res := s.ops.PFFDump(req.IPCPID)
	entries := make([]wire.PFFEntry, 0, len(pff))
	for addr, port := range pff {
		entries = append(entries, wire.PFFEntry{DestAddr: addr, NextHopPort: port})
	}
	return &wire.PFFDumpResponse{Header: req.Header, Result: wire.Result(res), Entries: entries}, nil
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// generated descriptor: one grpc.MethodDesc per RPC, each decoding its
// request through whatever codec the server negotiated (wire.CodecName
// here) rather than through generated proto unmarshal code.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GRPCService)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Health", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.Health(ctx, req.(*wire.HealthRequest))
		}, func() interface{} { return new(wire.HealthRequest) }),
		unaryMethod("AssignToDIF", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.AssignToDIF(ctx, req.(*wire.AssignToDIFRequest))
		}, func() interface{} { return new(wire.AssignToDIFRequest) }),
		unaryMethod("IPCCreate", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.IPCCreate(ctx, req.(*wire.IPCCreateRequest))
		}, func() interface{} { return new(wire.IPCCreateRequest) }),
		unaryMethod("IPCDestroy", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.IPCDestroy(ctx, req.(*wire.IPCDestroyRequest))
		}, func() interface{} { return new(wire.IPCDestroyRequest) }),
		unaryMethod("FlowCreate", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.FlowCreate(ctx, req.(*wire.FlowCreateRequest))
		}, func() interface{} { return new(wire.FlowCreateRequest) }),
		unaryMethod("FlowDestroy", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.FlowDestroy(ctx, req.(*wire.FlowDestroyRequest))
		}, func() interface{} { return new(wire.FlowDestroyRequest) }),
		unaryMethod("FlowList", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.FlowList(ctx, req.(*wire.FlowListRequest))
		}, func() interface{} { return new(wire.FlowListRequest) }),
		unaryMethod("ConnDump", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.ConnDump(ctx, req.(*wire.ConnDumpRequest))
		}, func() interface{} { return new(wire.ConnDumpRequest) }),
		unaryMethod("PFFDump", func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error) {
			return s.PFFDump(ctx, req.(*wire.PFFDumpRequest))
		}, func() interface{} { return new(wire.PFFDumpRequest) }),
	},
	Metadata: "controlapi/service.go",
}

func unaryMethod(
	name string,
	call func(s *GRPCService, ctx context.Context, req interface{}) (interface{}, error),
	newReq func() interface{},
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCService)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
