// Package proto defines the finkeeper.v1.Finance gRPC service shared by the
// client and the server. Every request and response is a
// google.protobuf.Struct; the fields of each method are listed below.
// Binary fields travel as standard base64 strings.
//
//	Register           {username, salt, verifier} -> {}
//	GetSalt            {username} -> {salt}
//	Login              {username, verifier} -> {access_token, refresh_token}
//	RefreshToken       {refresh_token} -> {access_token, refresh_token}
//	Ping               {} -> {status}
//	List               {collection} -> {items: [record...]}
//	Create             {collection, record} -> {record}
//	Update             {collection, id, record} -> {record}
//	Delete             {collection, id} -> {}
//	ReceiptUploadURL   {expense_id, content_type} -> {key, url}
//	ReceiptDownloadURL {key} -> {url}
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "finkeeper.v1.Finance"

const (
	Finance_Register_FullMethodName           = "/finkeeper.v1.Finance/Register"
	Finance_GetSalt_FullMethodName            = "/finkeeper.v1.Finance/GetSalt"
	Finance_Login_FullMethodName              = "/finkeeper.v1.Finance/Login"
	Finance_RefreshToken_FullMethodName       = "/finkeeper.v1.Finance/RefreshToken"
	Finance_Ping_FullMethodName               = "/finkeeper.v1.Finance/Ping"
	Finance_List_FullMethodName               = "/finkeeper.v1.Finance/List"
	Finance_Create_FullMethodName             = "/finkeeper.v1.Finance/Create"
	Finance_Update_FullMethodName             = "/finkeeper.v1.Finance/Update"
	Finance_Delete_FullMethodName             = "/finkeeper.v1.Finance/Delete"
	Finance_ReceiptUploadURL_FullMethodName   = "/finkeeper.v1.Finance/ReceiptUploadURL"
	Finance_ReceiptDownloadURL_FullMethodName = "/finkeeper.v1.Finance/ReceiptDownloadURL"
)

type FinanceClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSalt(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ReceiptUploadURL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ReceiptDownloadURL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type financeClient struct {
	cc grpc.ClientConnInterface
}

func NewFinanceClient(cc grpc.ClientConnInterface) FinanceClient {
	return &financeClient{cc}
}

func (c *financeClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *financeClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_Register_FullMethodName, in, opts)
}

func (c *financeClient) GetSalt(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_GetSalt_FullMethodName, in, opts)
}

func (c *financeClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_Login_FullMethodName, in, opts)
}

func (c *financeClient) RefreshToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_RefreshToken_FullMethodName, in, opts)
}

func (c *financeClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_Ping_FullMethodName, in, opts)
}

func (c *financeClient) List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_List_FullMethodName, in, opts)
}

func (c *financeClient) Create(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_Create_FullMethodName, in, opts)
}

func (c *financeClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_Update_FullMethodName, in, opts)
}

func (c *financeClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_Delete_FullMethodName, in, opts)
}

func (c *financeClient) ReceiptUploadURL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_ReceiptUploadURL_FullMethodName, in, opts)
}

func (c *financeClient) ReceiptDownloadURL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Finance_ReceiptDownloadURL_FullMethodName, in, opts)
}

type FinanceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSalt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReceiptUploadURL(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReceiptDownloadURL(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedFinanceServer can be embedded to satisfy FinanceServer.
type UnimplementedFinanceServer struct{}

func unimplemented(name string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", name)
}

func (UnimplementedFinanceServer) Register(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedFinanceServer) GetSalt(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("GetSalt")
}
func (UnimplementedFinanceServer) Login(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedFinanceServer) RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedFinanceServer) Ping(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedFinanceServer) List(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("List")
}
func (UnimplementedFinanceServer) Create(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Create")
}
func (UnimplementedFinanceServer) Update(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Update")
}
func (UnimplementedFinanceServer) Delete(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Delete")
}
func (UnimplementedFinanceServer) ReceiptUploadURL(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ReceiptUploadURL")
}
func (UnimplementedFinanceServer) ReceiptDownloadURL(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ReceiptDownloadURL")
}

type serverMethod func(FinanceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call serverMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FinanceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FinanceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Finance_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FinanceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(Finance_Register_FullMethodName, FinanceServer.Register)},
		{MethodName: "GetSalt", Handler: unaryHandler(Finance_GetSalt_FullMethodName, FinanceServer.GetSalt)},
		{MethodName: "Login", Handler: unaryHandler(Finance_Login_FullMethodName, FinanceServer.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(Finance_RefreshToken_FullMethodName, FinanceServer.RefreshToken)},
		{MethodName: "Ping", Handler: unaryHandler(Finance_Ping_FullMethodName, FinanceServer.Ping)},
		{MethodName: "List", Handler: unaryHandler(Finance_List_FullMethodName, FinanceServer.List)},
		{MethodName: "Create", Handler: unaryHandler(Finance_Create_FullMethodName, FinanceServer.Create)},
		{MethodName: "Update", Handler: unaryHandler(Finance_Update_FullMethodName, FinanceServer.Update)},
		{MethodName: "Delete", Handler: unaryHandler(Finance_Delete_FullMethodName, FinanceServer.Delete)},
		{MethodName: "ReceiptUploadURL", Handler: unaryHandler(Finance_ReceiptUploadURL_FullMethodName, FinanceServer.ReceiptUploadURL)},
		{MethodName: "ReceiptDownloadURL", Handler: unaryHandler(Finance_ReceiptDownloadURL_FullMethodName, FinanceServer.ReceiptDownloadURL)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finkeeper/v1/finance.proto",
}

func RegisterFinanceServer(s grpc.ServiceRegistrar, srv FinanceServer) {
	s.RegisterService(&Finance_ServiceDesc, srv)
}
