package matchmaking

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "matchbot.v1.Matchmaking"

// Method names.
const (
	MethodGetProfile        = "GetProfile"
	MethodNextCandidate     = "NextCandidate"
	MethodRecordReaction    = "RecordReaction"
	MethodListUnseenMatches = "ListUnseenMatches"
	MethodMarkMatchShown    = "MarkMatchShown"
	MethodListAdmirers      = "ListAdmirers"
	MethodCountAdmirers     = "CountAdmirers"
	MethodPurgeUser         = "PurgeUser"
	MethodStats             = "Stats"
)

// MatchmakingServer is the server API of the Matchmaking service.
// Requests and responses are google.protobuf.Struct messages; ids travel
// as decimal strings.
type MatchmakingServer interface {
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NextCandidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordReaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUnseenMatches(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkMatchShown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAdmirers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CountAdmirers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PurgeUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(MatchmakingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MatchmakingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MatchmakingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Matchmaking service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchmakingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetProfile, MatchmakingServer.GetProfile),
		unary(MethodNextCandidate, MatchmakingServer.NextCandidate),
		unary(MethodRecordReaction, MatchmakingServer.RecordReaction),
		unary(MethodListUnseenMatches, MatchmakingServer.ListUnseenMatches),
		unary(MethodMarkMatchShown, MatchmakingServer.MarkMatchShown),
		unary(MethodListAdmirers, MatchmakingServer.ListAdmirers),
		unary(MethodCountAdmirers, MatchmakingServer.CountAdmirers),
		unary(MethodPurgeUser, MatchmakingServer.PurgeUser),
		unary(MethodStats, MatchmakingServer.Stats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matchbot/v1/matchmaking.proto",
}

// RegisterMatchmakingServer attaches srv to s.
func RegisterMatchmakingServer(s grpc.ServiceRegistrar, srv MatchmakingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the gRPC path of a method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Client calls the Matchmaking service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req built from a plain map.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
