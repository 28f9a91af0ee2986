package api

import (
	"context"
	"errors"

	"github.com/matheus3301/gchat/internal/groupchat"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, groupchat.ErrNotConnected):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, groupchat.ErrNoUser), errors.Is(err, groupchat.ErrNoGroup):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, groupchat.ErrEmptyMessage):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
