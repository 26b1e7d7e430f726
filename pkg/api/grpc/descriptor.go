package grpcapi

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// structType is the message every calculator method takes and returns.
const structType = ".google.protobuf.Struct"

func init() {
	if err := registerCalculatorFile(); err != nil {
		panic(err)
	}
}

// calculatorFile builds the descriptor of the file named by
// CalculatorServiceDesc.Metadata, so server reflection can describe the
// service and its methods.
func calculatorFile() *descriptorpb.FileDescriptorProto {
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(CalculatorServiceDesc.Methods))
	for _, m := range CalculatorServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(CalculatorServiceDesc.Metadata.(string)),
		Package:    proto.String("calcfield.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("Calculator"),
			Method: methods,
		}},
		Syntax: proto.String("proto3"),
	}
}

func registerCalculatorFile() error {
	fdp := calculatorFile()
	if _, err := protoregistry.GlobalFiles.FindFileByPath(fdp.GetName()); err == nil {
		return nil
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return fmt.Errorf("building %s: %w", fdp.GetName(), err)
	}
	return protoregistry.GlobalFiles.RegisterFile(fd)
}
