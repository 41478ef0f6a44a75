package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cwrk-planet/dealer-chat/pkg/logger"
)

// health-проверки короткие, дольше ждать незачем
const callDeadline = 10 * time.Second

var errPanicked = status.Error(codes.Internal, "internal server error")

func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, callDeadline)
			defer cancel()
		}
		ctx, done := track(ctx, "unary", info.FullMethod)
		defer func() { err = done(recover(), err) }()

		return handler(ctx, req)
	}
}

// StreamServerInterceptor нужен для Health/Watch; deadline стриму не ставим.
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		_, done := track(ss.Context(), "stream", info.FullMethod)
		defer func() { err = done(recover(), err) }()

		return handler(srv, ss)
	}
}

// track кладёт в ctx логгер вызова и возвращает завершение: panic -> Internal,
// затем одна строка лога с уровнем по коду.
func track(ctx context.Context, kind, method string) (context.Context, func(any, error) error) {
	l := logger.FromCtx(ctx).With("grpc_kind", kind, "method", method)
	start := time.Now()

	return logger.WithCtx(ctx, l), func(p any, err error) error {
		if p != nil {
			l.Error("grpc panic", "panic", p, "stack", string(debug.Stack()))
			err = errPanicked
		}
		code := status.Code(err)
		l.Log(ctx, levelFor(code), "grpc call",
			"code", code.String(),
			"dur_ms", time.Since(start).Milliseconds())
		return err
	}
}

func levelFor(c codes.Code) slog.Level {
	switch c {
	case codes.OK, codes.Canceled:
		return slog.LevelDebug
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		return slog.LevelError
	}
	return slog.LevelWarn
}
