package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader carries the request id in gRPC metadata.
const RequestIDHeader = "x-request-id"

// LoggingInterceptor tags each call with a request id (taken from the
// caller's metadata or generated) and logs method, code and duration.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDHeader); len(vals) > 0 {
				requestID = vals[0]
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := []any{
			"method", info.FullMethod,
			"request_id", requestID,
			"code", code.String(),
			"duration", time.Since(start),
		}
		switch code {
		case codes.OK:
			log.Debug("grpc call", attrs...)
		case codes.Internal, codes.Unknown:
			log.Error("grpc call failed", append(attrs, "err", err)...)
		default:
			log.Info("grpc call rejected", append(attrs, "err", err)...)
		}
		return resp, err
	}
}

// AuthInterceptor requires "authorization: Bearer <token>" whose bcrypt
// hash is tokenHash. An empty tokenHash disables the check.
func AuthInterceptor(tokenHash string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if tokenHash == "" {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		vals := md.Get("authorization")
		if len(vals) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization")
		}
		token := strings.TrimSpace(strings.TrimPrefix(vals[0], "Bearer "))
		if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}
