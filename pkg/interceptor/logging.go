// Package interceptor provides the built-in cross-cutting units shipped
// with the runtime: request logging, JWT authentication, and rate limiting.
// Each is an ordinary pipeline.Interceptor; applications compose them with
// their own in whatever order the chain should run.
package interceptor

import (
	"go.uber.org/zap"

	"relay/pkg/pipeline"
)

// Logging logs every request outcome with timing, route, and error details.
// Place it first in the chain so its OnComplete runs last and observes the
// final result, including transformations made by later interceptors.
type Logging struct {
	logger *zap.Logger
}

// NewLogging creates the logging interceptor.
func NewLogging(logger *zap.Logger) *Logging {
	return &Logging{logger: logger}
}

// Name implements pipeline.Interceptor.
func (l *Logging) Name() string { return "logging" }

// Before implements pipeline.BeforeHook.
func (l *Logging) Before(rc *pipeline.RequestContext) (*pipeline.Result, error) {
	l.logger.Debug("request started",
		zap.String("request_id", rc.RequestID),
		zap.String("method", rc.Method),
		zap.String("path", rc.Path),
	)
	return nil, nil
}

// OnComplete implements pipeline.CompletionHook.
func (l *Logging) OnComplete(rc *pipeline.RequestContext, res *pipeline.Result) error {
	fields := []zap.Field{
		zap.String("request_id", rc.RequestID),
		zap.String("method", rc.Method),
		zap.String("path", rc.Path),
		zap.Duration("duration", rc.Elapsed()),
	}
	if rc.Route != nil {
		fields = append(fields, zap.String("route", rc.Route.Pattern))
	}
	if userID := rc.GetString(pipeline.MetaUserID); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}

	if res.Failed() {
		l.logger.Warn("request completed with error", append(fields, zap.Error(res.Err))...)
	} else {
		l.logger.Info("request completed", fields...)
	}
	return nil
}
