package api

import (
	"context"

	"google.golang.org/grpc"
)

const (
	SessionServiceName = "gchat.v1.SessionService"
	GroupServiceName   = "gchat.v1.GroupService"
	MediaServiceName   = "gchat.v1.MediaService"
)

// SessionServer is implemented by SessionService.
type SessionServer interface {
	GetStatus(context.Context, *Empty) (*GetStatusResponse, error)
}

// GroupServer is implemented by GroupService.
type GroupServer interface {
	JoinRoom(context.Context, *JoinRoomRequest) (*JoinRoomResponse, error)
	LeaveRoom(context.Context, *Empty) (*Empty, error)
	GetRoom(context.Context, *Empty) (*GetRoomResponse, error)
	LoadMore(context.Context, *LoadMoreRequest) (*LoadMoreResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*Empty, error)
	SetTyping(context.Context, *SetTypingRequest) (*Empty, error)
	MarkSeen(context.Context, *MarkSeenRequest) (*Empty, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	WatchEvents(*WatchEventsRequest, EventStream) error
}

// MediaServer is implemented by MediaService.
type MediaServer interface {
	Upload(context.Context, *UploadRequest) (*UploadResponse, error)
	ListUploads(context.Context, *ListUploadsRequest) (*ListUploadsResponse, error)
}

// EventStream is the server side of WatchEvents.
type EventStream interface {
	Send(*EventEnvelope) error
	Context() context.Context
}

type eventStream struct {
	grpc.ServerStream
}

func (s eventStream) Send(e *EventEnvelope) error { return s.ServerStream.SendMsg(e) }

// unary builds a method descriptor for a handler taking *Req and returning *Resp.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetStatus", SessionServer.GetStatus),
	},
	Metadata: "gchat/v1/session",
}

var GroupServiceDesc = grpc.ServiceDesc{
	ServiceName: GroupServiceName,
	HandlerType: (*GroupServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(GroupServiceName, "JoinRoom", GroupServer.JoinRoom),
		unary(GroupServiceName, "LeaveRoom", GroupServer.LeaveRoom),
		unary(GroupServiceName, "GetRoom", GroupServer.GetRoom),
		unary(GroupServiceName, "LoadMore", GroupServer.LoadMore),
		unary(GroupServiceName, "SendMessage", GroupServer.SendMessage),
		unary(GroupServiceName, "SetTyping", GroupServer.SetTyping),
		unary(GroupServiceName, "MarkSeen", GroupServer.MarkSeen),
		unary(GroupServiceName, "History", GroupServer.History),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchEventsRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(GroupServer).WatchEvents(in, eventStream{stream})
			},
		},
	},
	Metadata: "gchat/v1/group",
}

var MediaServiceDesc = grpc.ServiceDesc{
	ServiceName: MediaServiceName,
	HandlerType: (*MediaServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MediaServiceName, "Upload", MediaServer.Upload),
		unary(MediaServiceName, "ListUploads", MediaServer.ListUploads),
	},
	Metadata: "gchat/v1/media",
}

// Register attaches all services to s.
func Register(s grpc.ServiceRegistrar, session SessionServer, group GroupServer, media MediaServer) {
	s.RegisterService(&SessionServiceDesc, session)
	s.RegisterService(&GroupServiceDesc, group)
	s.RegisterService(&MediaServiceDesc, media)
}
