package grpcstore

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ipld/storage"
)

// Server exposes a storage.Blockstore over the Blockstore gRPC service.
type Server struct {
	UnimplementedBlockstoreServer
	Store storage.Blockstore
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	mhType, err := hashFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	b := in.GetValue()
	expected, err := storage.Expected(b, mhType)
	if err != nil {
		return nil, mapErr(err)
	}
	id, err := s.Store.Put(b, mhType)
	if err != nil {
		return nil, mapErr(err)
	}
	if !id.Equals(expected) {
		return nil, mapErr(storage.ErrCIDMismatch)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := cid.Decode(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, mapErr(storage.ErrInvalidCID)
	}
	b, err := s.Store.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := storage.Check(id, b); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := cid.Decode(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, mapErr(storage.ErrInvalidCID)
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}

// LoggingInterceptor logs every failed RPC at warn level and every
// successful one at debug level.
func LoggingInterceptor(log *logrus.Entry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		entry := log.WithField("method", info.FullMethod)
		if v, ok := req.(*wrapperspb.StringValue); ok {
			entry = entry.WithField("cid", v.GetValue())
		}
		if v, ok := resp.(*wrapperspb.StringValue); ok && err == nil {
			entry = entry.WithField("cid", v.GetValue())
		}
		if err != nil {
			entry.WithField("code", status.Code(err).String()).WithError(err).Warn("rpc failed")
		} else {
			entry.Debug("rpc ok")
		}
		return resp, err
	}
}
