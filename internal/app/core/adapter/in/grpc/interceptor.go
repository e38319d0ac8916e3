package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor 記錄每個請求的方法、耗時與狀態碼
// Internal / Unavailable 以 error 等級記錄
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
			zap.Stringer("code", code),
		}
		if tr, ok := resp.(*TransactionResponse); ok && tr != nil && !tr.Success {
			fields = append(fields, zap.String("error_kind", tr.ErrorKind))
		}

		switch code {
		case codes.Internal, codes.Unavailable, codes.Unknown:
			logger.Error("grpc request", append(fields, zap.Error(err))...)
		default:
			logger.Info("grpc request", fields...)
		}
		return resp, err
	}
}
