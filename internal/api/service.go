package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "studiosign.v1.ConsentService"

const (
	MethodOpenSigningSession  = "/" + ServiceName + "/OpenSigningSession"
	MethodRequestCode         = "/" + ServiceName + "/RequestCode"
	MethodSubmitSignature     = "/" + ServiceName + "/SubmitSignature"
	MethodVerify              = "/" + ServiceName + "/Verify"
	MethodAbort               = "/" + ServiceName + "/Abort"
	MethodDownloadCertificate = "/" + ServiceName + "/DownloadCertificate"
	MethodListConsents        = "/" + ServiceName + "/ListConsents"
	MethodConsentHistory      = "/" + ServiceName + "/ConsentHistory"
	MethodRecordPaperConsent  = "/" + ServiceName + "/RecordPaperConsent"
	MethodUpsertSubject       = "/" + ServiceName + "/UpsertSubject"
	MethodUpsertTenant        = "/" + ServiceName + "/UpsertTenant"
)

// ConsentServiceServer is implemented by the gRPC transport.
type ConsentServiceServer interface {
	OpenSigningSession(context.Context, *OpenSessionRequest) (*OpenSessionResponse, error)
	RequestCode(context.Context, *SessionRequest) (*SessionView, error)
	SubmitSignature(context.Context, *SubmitSignatureRequest) (*SessionView, error)
	Verify(context.Context, *VerifyRequest) (*VerifyResponse, error)
	Abort(context.Context, *SessionRequest) (*SessionView, error)
	DownloadCertificate(context.Context, *CertificateRequest) (*CertificateResponse, error)
	ListConsents(context.Context, *ListConsentsRequest) (*ListConsentsResponse, error)
	ConsentHistory(context.Context, *HistoryRequest) (*HistoryResponse, error)
	RecordPaperConsent(context.Context, *PaperConsentRequest) (*ConsentSummary, error)
	UpsertSubject(context.Context, *UpsertSubjectRequest) (*Subject, error)
	UpsertTenant(context.Context, *UpsertTenantRequest) (*Tenant, error)
}

func unary[Req, Resp any](name string, call func(ConsentServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ConsentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ConsentServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConsentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenSigningSession", ConsentServiceServer.OpenSigningSession),
		unary("RequestCode", ConsentServiceServer.RequestCode),
		unary("SubmitSignature", ConsentServiceServer.SubmitSignature),
		unary("Verify", ConsentServiceServer.Verify),
		unary("Abort", ConsentServiceServer.Abort),
		unary("DownloadCertificate", ConsentServiceServer.DownloadCertificate),
		unary("ListConsents", ConsentServiceServer.ListConsents),
		unary("ConsentHistory", ConsentServiceServer.ConsentHistory),
		unary("RecordPaperConsent", ConsentServiceServer.RecordPaperConsent),
		unary("UpsertSubject", ConsentServiceServer.UpsertSubject),
		unary("UpsertTenant", ConsentServiceServer.UpsertTenant),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "studiosign/v1/consent.json",
}

func RegisterConsentServiceServer(s grpc.ServiceRegistrar, srv ConsentServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
