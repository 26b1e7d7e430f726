package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the calculator service.
const ServiceName = "calcfield.v1.Calculator"

// CalculatorServer is the server API for the calculator service. Requests and
// responses are google.protobuf.Struct values carrying the same fields as the
// REST bodies.
type CalculatorServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessEdit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Paste(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Press(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Equals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearAll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Backspace(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(CalculatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CalculatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CalculatorServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CalculatorServiceDesc describes the calculator service for registration.
var CalculatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalculatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateSession", CalculatorServer.CreateSession),
		unaryHandler("GetSession", CalculatorServer.GetSession),
		unaryHandler("DeleteSession", CalculatorServer.DeleteSession),
		unaryHandler("ProcessEdit", CalculatorServer.ProcessEdit),
		unaryHandler("ProcessKey", CalculatorServer.ProcessKey),
		unaryHandler("Paste", CalculatorServer.Paste),
		unaryHandler("Press", CalculatorServer.Press),
		unaryHandler("Equals", CalculatorServer.Equals),
		unaryHandler("ClearAll", CalculatorServer.ClearAll),
		unaryHandler("Backspace", CalculatorServer.Backspace),
		unaryHandler("Evaluate", CalculatorServer.Evaluate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calcfield/v1/calculator.proto",
}

// RegisterCalculatorServer registers srv on s.
func RegisterCalculatorServer(s grpc.ServiceRegistrar, srv CalculatorServer) {
	s.RegisterService(&CalculatorServiceDesc, srv)
}

// Client calls the calculator service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a calculator client.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with the given request fields.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
