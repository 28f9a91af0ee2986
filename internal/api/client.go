package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a typed client for all daemon services.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix domain socket. The connection is lazy:
// errors surface on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, service, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, "/"+service+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	return invoke[GetStatusResponse](ctx, c, SessionServiceName, "GetStatus", &Empty{})
}

func (c *Client) JoinRoom(ctx context.Context, groupID int64) (*JoinRoomResponse, error) {
	return invoke[JoinRoomResponse](ctx, c, GroupServiceName, "JoinRoom", &JoinRoomRequest{GroupID: groupID})
}

func (c *Client) LeaveRoom(ctx context.Context) error {
	_, err := invoke[Empty](ctx, c, GroupServiceName, "LeaveRoom", &Empty{})
	return err
}

func (c *Client) GetRoom(ctx context.Context) (*GetRoomResponse, error) {
	return invoke[GetRoomResponse](ctx, c, GroupServiceName, "GetRoom", &Empty{})
}

func (c *Client) LoadMore(ctx context.Context, groupID int64) (*LoadMoreResponse, error) {
	return invoke[LoadMoreResponse](ctx, c, GroupServiceName, "LoadMore", &LoadMoreRequest{GroupID: groupID})
}

func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) error {
	_, err := invoke[Empty](ctx, c, GroupServiceName, "SendMessage", req)
	return err
}

func (c *Client) SetTyping(ctx context.Context, isTyping bool) error {
	_, err := invoke[Empty](ctx, c, GroupServiceName, "SetTyping", &SetTypingRequest{IsTyping: isTyping})
	return err
}

func (c *Client) MarkSeen(ctx context.Context, messageID int64) error {
	_, err := invoke[Empty](ctx, c, GroupServiceName, "MarkSeen", &MarkSeenRequest{MessageID: messageID})
	return err
}

func (c *Client) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c, GroupServiceName, "History", req)
}

func (c *Client) Upload(ctx context.Context, paths []string) (*UploadResponse, error) {
	return invoke[UploadResponse](ctx, c, MediaServiceName, "Upload", &UploadRequest{Paths: paths})
}

func (c *Client) ListUploads(ctx context.Context, limit int) (*ListUploadsResponse, error) {
	return invoke[ListUploadsResponse](ctx, c, MediaServiceName, "ListUploads", &ListUploadsRequest{Limit: limit})
}

// ClearUploads drops finished entries from the daemon's progress map and
// returns what is left.
func (c *Client) ClearUploads(ctx context.Context) (*ListUploadsResponse, error) {
	return invoke[ListUploadsResponse](ctx, c, MediaServiceName, "ListUploads", &ListUploadsRequest{Limit: 1, ClearFinished: true})
}

// EventWatcher receives events from WatchEvents.
type EventWatcher struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (w *EventWatcher) Recv() (*EventEnvelope, error) {
	env := new(EventEnvelope)
	if err := w.stream.RecvMsg(env); err != nil {
		return nil, err
	}
	return env, nil
}

// WatchEvents streams daemon events whose kind starts with prefix until ctx
// is cancelled.
func (c *Client) WatchEvents(ctx context.Context, prefix string) (*EventWatcher, error) {
	desc := &GroupServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, "/"+GroupServiceName+"/"+desc.StreamName)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchEventsRequest{Prefix: prefix}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventWatcher{stream: stream}, nil
}
