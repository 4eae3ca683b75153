package download

import (
	"os"
	"testing"

	"github.com/ytget/ytdl-gui/internal/logger"
)

func TestMain(m *testing.M) {
	// Keep run logs out of the user cache directory
	logger.Reset()
	logger.Init(os.DevNull)

	code := m.Run()

	logger.Reset()
	os.Exit(code)
}
