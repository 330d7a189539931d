package pkg

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log 全局日志入口，测试环境下同样可用
var Log = logrus.NewEntry(logrus.StandardLogger())

func InitLogger(env, level string) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if env == "prod" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	Log = logger.WithFields(logrus.Fields{"service": "pulseloop-api", "env": env})
}
