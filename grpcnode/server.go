package grpcnode

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Ledger is what a node exposes over the Node service. Errors should be
// *model.Error so their codes survive the trip to the client.
type Ledger interface {
	Submit(ctx context.Context, signed []byte) (string, error)
	Query(ctx context.Context, query []byte) ([]byte, error)
}

// Server exposes a Ledger over the Node gRPC service.
type Server struct {
	UnimplementedNodeServer
	Ledger Ledger
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	id, err := s.Ledger.Submit(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(id), nil
}

func (s *Server) Query(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	b, err := s.Ledger.Query(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

// LoggingInterceptor logs every unary call at debug level and failures at
// warn level.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.String("code", status.Code(err).String()), zap.Error(err))...)
			return resp, err
		}
		logger.Debug("rpc", fields...)
		return resp, nil
	}
}
