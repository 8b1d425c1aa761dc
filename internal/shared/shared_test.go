package shared

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestShared(t *testing.T) {
	t.Run("GenerateID", func(t *testing.T) {
		id := GenerateID()

		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("expected valid uuid, got %s: %v", id, err)
		}

		if GenerateID() == id {
			t.Error("expected successive ids to differ")
		}
	})

	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		logger.Info("hello")
		if buf.Len() == 0 {
			t.Error("expected log output to be written to the buffer")
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")

		logger.Info("hello")
		if !bytes.Contains(buf.Bytes(), []byte("component")) {
			t.Error("expected child logger to carry the component field")
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.ErrorLevel)

		logger.Info("suppressed")
		if buf.Len() != 0 {
			t.Error("expected info logs to be suppressed at error level")
		}
	})
}
