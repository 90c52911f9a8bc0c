package grpcx

import (
	"context"

	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"google.golang.org/grpc"
)

const ServiceName = "listeningroom.v1.RoomService"

// RoomServiceServer is the gRPC surface of the room service.
type RoomServiceServer interface {
	CreateRoom(context.Context, *dto.CreateRoomRequest) (*dto.JoinResponse, error)
	ListRooms(context.Context, *ListRoomsRequest) (*dto.RoomsPage, error)
	JoinRoom(context.Context, *JoinRoomRequest) (*dto.JoinResponse, error)
	LeaveRoom(context.Context, *RoomRequest) (*Empty, error)
	TransferHost(context.Context, *TransferHostRequest) (*dto.Snapshot, error)
	GetSnapshot(context.Context, *RoomRequest) (*dto.Snapshot, error)
	AddTrack(context.Context, *AddTrackRequest) (*dto.Track, error)
	Vote(context.Context, *TrackRequest) (*dto.Track, error)
	Skip(context.Context, *RoomRequest) (*dto.PlaybackResponse, error)
	FinishTrack(context.Context, *TrackRequest) (*dto.PlaybackResponse, error)
	PostMessage(context.Context, *PostMessageRequest) (*dto.ChatMessage, error)
	ReadMessages(*ReadMessagesRequest, grpc.ServerStream) error
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp any](name string, call func(RoomServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RoomServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(RoomServiceServer), ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateRoom", RoomServiceServer.CreateRoom),
		unary("ListRooms", RoomServiceServer.ListRooms),
		unary("JoinRoom", RoomServiceServer.JoinRoom),
		unary("LeaveRoom", RoomServiceServer.LeaveRoom),
		unary("TransferHost", RoomServiceServer.TransferHost),
		unary("GetSnapshot", RoomServiceServer.GetSnapshot),
		unary("AddTrack", RoomServiceServer.AddTrack),
		unary("Vote", RoomServiceServer.Vote),
		unary("Skip", RoomServiceServer.Skip),
		unary("FinishTrack", RoomServiceServer.FinishTrack),
		unary("PostMessage", RoomServiceServer.PostMessage),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ReadMessages",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(ReadMessagesRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(RoomServiceServer).ReadMessages(in, stream)
			},
		},
	},
	Metadata: "listeningroom/v1/room.json",
}

func Register(s grpc.ServiceRegistrar, srv RoomServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}
