package util

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger = zap.NewNop().Sugar()
	lock   sync.RWMutex
)

//InitLogger installs a console logger: development settings when debug is set, warnings and above otherwise.
//Until it is called the library logs nothing.
func InitLogger(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(l.Sugar())
	return nil
}

//SetLogger replaces the package logger, e.g. with a host application's logger
func SetLogger(l *zap.SugaredLogger) {
	lock.Lock()
	defer lock.Unlock()
	logger = l
}

//Logger returns the current logger
func Logger() *zap.SugaredLogger {
	lock.RLock()
	defer lock.RUnlock()
	return logger
}

//Log logs at info level and flushes
func Log(format string, v ...interface{}) {
	l := Logger()
	l.Infof(format, v...)
	l.Sync()
}
