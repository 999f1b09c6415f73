package cablekit

import (
	"go.uber.org/zap"
)

// zapLogger adapts a *zap.SugaredLogger to the logger interface so that
// production consumers of this module can plug in structured, leveled
// logging instead of the plain io.Writer logger used in tests.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps the given zap logger. Pass zap.NewProduction() or
// zap.NewDevelopment() depending on the deployment environment.
func NewZapLogger(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) WithField(key string, value any) Logger {
	return &zapLogger{sugar: l.sugar.With(key, value)}
}

func (l *zapLogger) Debug(args ...any)                 { l.sugar.Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Debugln(args ...any)               { l.sugar.Debugln(args...) }
func (l *zapLogger) Info(args ...any)                  { l.sugar.Info(args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Infoln(args ...any)                { l.sugar.Infoln(args...) }
func (l *zapLogger) Warn(args ...any)                  { l.sugar.Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Warnln(args ...any)                { l.sugar.Warnln(args...) }
func (l *zapLogger) Error(args ...any)                 { l.sugar.Error(args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
func (l *zapLogger) Errorln(args ...any)               { l.sugar.Errorln(args...) }
