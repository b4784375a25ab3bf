package grpcx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/live-room-service/internal/domain"
	"github.com/cwrk-planet/live-room-service/internal/live"
	"github.com/cwrk-planet/live-room-service/internal/service"
	httpmw "github.com/cwrk-planet/live-room-service/internal/transport/http/middleware"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	mdAuthorization = "authorization"
	mdUserID        = "x-user-id"
)

// ServiceName — сервис описан вручную, сообщения google.protobuf.Struct.
const ServiceName = "liveroom.v1.LiveRoom"

type Server struct {
	liveSvc     *service.LiveService
	authEnabled bool
	verifier    *httpmw.Verifier
}

func NewServer(liveSvc *service.LiveService, authEnabled bool, verifier *httpmw.Verifier) *Server {
	return &Server{
		liveSvc:     liveSvc,
		authEnabled: authEnabled,
		verifier:    verifier,
	}
}

func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&serviceDesc, s)
}

// LiveRoomServer — методы liveroom.v1.LiveRoom.
type LiveRoomServer interface {
	Start(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stop(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Advance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLiveStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLive(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryFunc func(s *Server, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LiveRoomServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Start", (*Server).Start),
		method("Stop", (*Server).Stop),
		method("Advance", (*Server).Advance),
		method("PostChat", (*Server).PostChat),
		method("GetLiveStatus", (*Server).GetLiveStatus),
		method("ListLive", (*Server).ListLive),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "liveroom/v1/liveroom.proto",
}

func method(name string, fn unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// -------- helpers --------

func (s *Server) userFromMD(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	userID := first(md.Get(mdUserID))
	if !s.authEnabled {
		return userID, nil
	}

	// Authorization: Bearer <access_token>
	auth := first(md.Get(mdAuthorization))
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") || len(auth) <= 7 {
		return "", status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	token := strings.TrimSpace(auth[7:])

	if s.verifier != nil {
		sub, err := s.verifier.Verify(token)
		if err != nil {
			return "", status.Error(codes.Unauthenticated, err.Error())
		}
		return sub, nil
	}
	if userID == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id")
	}
	return userID, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}

	return ss[0]
}

func roomID(in *structpb.Struct) (string, error) {
	id := strings.TrimSpace(in.GetFields()["room_id"].GetStringValue())
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "room_id is required")
	}
	return id, nil
}

// toStruct — через JSON, чтобы поля совпадали с HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyLive):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrNotLive):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrEmptyAudio),
		errors.Is(err, domain.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDownstreamUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- methods --------

func (s *Server) Start(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.userFromMD(ctx); err != nil {
		return nil, err
	}
	id, err := roomID(in)
	if err != nil {
		return nil, err
	}
	snap, err := s.liveSvc.StartRoom(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}

	return toStruct(snap)
}

func (s *Server) Stop(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.userFromMD(ctx); err != nil {
		return nil, err
	}
	id, err := roomID(in)
	if err != nil {
		return nil, err
	}
	stopped := s.liveSvc.StopRoom(ctx, id)

	return toStruct(map[string]any{"room_id": id, "stopped": stopped})
}

// Advance: необязательное поле generation делает переход условным.
func (s *Server) Advance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.userFromMD(ctx); err != nil {
		return nil, err
	}
	id, err := roomID(in)
	if err != nil {
		return nil, err
	}

	var gen *uint64
	if v, ok := in.GetFields()["generation"]; ok {
		n := v.GetNumberValue()
		if n < 0 || n != float64(uint64(n)) {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid generation %v", n))
		}
		g := uint64(n)
		gen = &g
	}

	snap, applied, err := s.liveSvc.AdvanceProduct(ctx, id, gen)
	if err != nil {
		return nil, mapErr(err)
	}

	return toStruct(map[string]any{"applied": applied, "room": snap})
}

func (s *Server) PostChat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	uid, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	id, err := roomID(in)
	if err != nil {
		return nil, err
	}
	f := in.GetFields()
	if uid == "" {
		uid = f["user_id"].GetStringValue()
	}

	res, err := s.liveSvc.PostChat(ctx, id, live.ChatInput{
		UserID:   uid,
		UserName: f["user_name"].GetStringValue(),
		Text:     f["text"].GetStringValue(),
	})
	if err != nil {
		return nil, mapErr(err)
	}

	return toStruct(map[string]any{"message": res.Message, "reply": res.Reply})
}

func (s *Server) GetLiveStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.userFromMD(ctx); err != nil {
		return nil, err
	}
	id, err := roomID(in)
	if err != nil {
		return nil, err
	}
	since := int64(in.GetFields()["since"].GetNumberValue())

	snap, err := s.liveSvc.GetLiveStatus(ctx, id, since)
	if err != nil {
		return nil, mapErr(err)
	}

	return toStruct(snap)
}

func (s *Server) ListLive(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.userFromMD(ctx); err != nil {
		return nil, err
	}

	return toStruct(map[string]any{"rooms": s.liveSvc.ListLive(ctx)})
}
