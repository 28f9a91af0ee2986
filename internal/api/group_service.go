package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// GroupService drives the active room.
type GroupService struct {
	room   *groupchat.Room
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewGroupService creates a group service. db may be nil, in which case
// History is unavailable.
func NewGroupService(room *groupchat.Room, db *store.DB, b *bus.Bus, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{room: room, db: db, bus: b, logger: logger}
}

func (s *GroupService) JoinRoom(_ context.Context, req *JoinRoomRequest) (*JoinRoomResponse, error) {
	if req.GroupID <= 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "group id is required")
	}
	err := s.room.JoinGroupRoom(req.GroupID)
	switch {
	case err == nil:
		return &JoinRoomResponse{GroupID: req.GroupID, Joined: s.room.Snapshot().IsJoined}, nil
	case errors.Is(err, groupchat.ErrNotConnected):
		// The room keeps the group and joins it once the socket is back.
		return &JoinRoomResponse{GroupID: req.GroupID, Message: "not connected; will join on reconnect"}, nil
	default:
		return nil, toStatus(err)
	}
}

func (s *GroupService) LeaveRoom(_ context.Context, _ *Empty) (*Empty, error) {
	if err := s.room.LeaveGroupRoom(); err != nil {
		s.logger.Debug("leave emit skipped", zap.Error(err))
	}
	return &Empty{}, nil
}

func (s *GroupService) GetRoom(_ context.Context, _ *Empty) (*GetRoomResponse, error) {
	return &GetRoomResponse{Room: s.room.Snapshot()}, nil
}

func (s *GroupService) LoadMore(ctx context.Context, req *LoadMoreRequest) (*LoadMoreResponse, error) {
	groupID := req.GroupID
	if groupID == 0 {
		groupID = s.room.CurrentGroupID()
	}
	if groupID == 0 {
		return nil, toStatus(groupchat.ErrNoGroup)
	}

	added := s.room.LoadMoreMessages(ctx, groupID)
	after := s.room.Snapshot()

	return &LoadMoreResponse{
		Added:   added,
		HasMore: after.HasMoreMessages,
		Cursor:  after.CurrentCursor,
		Error:   after.LastFetchError,
	}, nil
}

func (s *GroupService) SendMessage(_ context.Context, req *SendMessageRequest) (*Empty, error) {
	if err := s.room.SendMessage(req.Content, req.Attachments, req.ReplyToID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GroupService) SetTyping(_ context.Context, req *SetTypingRequest) (*Empty, error) {
	if err := s.room.SetTypingStatus(req.IsTyping); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GroupService) MarkSeen(_ context.Context, req *MarkSeenRequest) (*Empty, error) {
	if req.MessageID <= 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "message id is required")
	}
	if err := s.room.MarkMessageAsSeen(req.MessageID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// History reads the local cache, which holds every message the daemon has
// seen live or paged in.
func (s *GroupService) History(_ context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if s.db == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "local store not available")
	}
	groupID := req.GroupID
	if groupID == 0 {
		groupID = s.room.CurrentGroupID()
	}
	if groupID == 0 {
		return nil, toStatus(groupchat.ErrNoGroup)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	msgs, err := s.db.ListGroupMessages(groupID, req.BeforeID, limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}
	return &HistoryResponse{Messages: msgs, HasMore: len(msgs) == limit}, nil
}

func (s *GroupService) WatchEvents(req *WatchEventsRequest, stream EventStream) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 64)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			env := &EventEnvelope{
				EventID:          uuid.New().String(),
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Kind:             evt.Kind,
			}
			if evt.Payload != nil {
				payload, err := json.Marshal(evt.Payload)
				if err != nil {
					s.logger.Warn("dropping unencodable event payload", zap.String("kind", evt.Kind), zap.Error(err))
				} else {
					env.Payload = payload
				}
			}
			if err := stream.Send(env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
