package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitLoggerConfiguresStandardLogger(t *testing.T) {
	prevLevel := logrus.GetLevel()
	prevFormatter := logrus.StandardLogger().Formatter
	prevOut := logrus.StandardLogger().Out
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
		logrus.SetOutput(prevOut)
	})

	InitLogger("debug")
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
	assert.IsType(t, &logrus.JSONFormatter{}, Log.Formatter)

	InitLogger("not-a-level")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
