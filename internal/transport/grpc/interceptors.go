package grpcx

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const mdRequestID = "x-request-id"

// чтения не лимитируем
var readOnly = map[string]bool{
	fullMethod("ListRooms"):   true,
	fullMethod("GetSnapshot"): true,
}

const tracerName = "listening-room/grpc"

// requestLogger opens the call span and builds the per-call logger: request id
// from metadata or a fresh one.
func requestLogger(ctx context.Context, method string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method)
	rid := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		rid = first(md.Get(mdRequestID))
	}
	if rid == "" {
		rid = uuid.NewString()
	}
	l := logger.FromContext(ctx).With("req_id", rid, "method", method)
	return logger.WithContext(ctx, l), span
}

// UnaryServerInterceptor: logging + recovery + timeout guard (если у вызова нет deadline)
func UnaryServerInterceptor(defaultTimeout time.Duration) grpc.UnaryServerInterceptor {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		ctx, span := requestLogger(ctx, info.FullMethod)
		defer span.End()
		// deadline guard
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
		}

		defer func() {
			l := logger.FromContext(ctx)
			if r := recover(); r != nil {
				l.Error("grpc unary panic",
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			l.Info("grpc unary",
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(ctx, req)
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		ctx, span := requestLogger(ss.Context(), info.FullMethod)
		defer span.End()

		defer func() {
			l := logger.FromContext(ctx)
			if r := recover(); r != nil {
				l.Error("grpc stream panic",
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			l.Info("grpc stream",
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

// RateLimitInterceptor throttles mutating calls per client address.
func RateLimitInterceptor(l ratelimit.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if readOnly[info.FullMethod] {
			return handler(ctx, req)
		}
		key := "grpc:unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			key = "grpc:" + hostOf(p.Addr.String())
		}
		res, err := l.Allow(ctx, key)
		if err != nil {
			logger.FromContext(ctx).Warn("rate limiter failed", "err", err)
			return handler(ctx, req)
		}
		if !res.Allowed {
			_ = grpc.SetTrailer(ctx, metadata.Pairs(mdErrorCode, dto.CodeRateLimited))
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry in %s",
				res.RetryAfter(time.Now()).Round(time.Second))
		}
		return handler(ctx, req)
	}
}

func hostOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return addr[:i]
	}
	return addr
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
