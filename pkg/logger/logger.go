package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var log *zap.Logger

var serviceName = "mt4-gateway"

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init builds the process-wide logger. Call once, before anything logs.
func Init(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)

	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}

	log = l
	return nil
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Debug(format string, args ...interface{}) {
	if log == nil {
		return
	}

	log.With(
		zap.String("service", serviceName),
	).Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	if log == nil {
		return
	}

	log.With(
		zap.String("service", serviceName),
	).Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	if log == nil {
		return
	}

	log.With(
		zap.String("service", serviceName),
	).Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	if log == nil {
		return
	}

	log.With(
		zap.String("service", serviceName),
	).Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	if log == nil {
		panic(fmt.Sprintf(format, args...))
	}

	log.With(
		zap.String("service", serviceName),
	).Fatal(fmt.Sprintf(format, args...))
}
