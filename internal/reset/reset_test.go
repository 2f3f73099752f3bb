package reset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWipeDeletesDataDirectory(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "chats.json"), []byte("{}"), 0o644))

	s := NewService(dataDir, zap.NewNop())
	require.NoError(t, s.Wipe())
	assert.NoDirExists(t, dataDir)
}

func TestWipeMissingDirectoryIsSuccess(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "never-created"), zap.NewNop())
	assert.NoError(t, s.Wipe())
}

func TestCloseAppExitsAfterDelay(t *testing.T) {
	exited := make(chan int, 1)
	s := NewService(t.TempDir(), zap.NewNop())
	s.exit = func(code int) { exited <- code }

	s.CloseApp()

	select {
	case code := <-exited:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("close did not exit")
	}
}

func TestRestartAppFallsBackToExit(t *testing.T) {
	exited := make(chan int, 1)
	s := NewService(t.TempDir(), zap.NewNop())
	s.restart = func() error { return errors.New("exec failed") }
	s.exit = func(code int) { exited <- code }

	s.RestartApp()

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("restart failure did not fall back to exit")
	}
}

func TestRestartAppInvokesRestart(t *testing.T) {
	restarted := make(chan struct{}, 1)
	s := NewService(t.TempDir(), zap.NewNop())
	s.restart = func() error {
		restarted <- struct{}{}
		return nil
	}
	s.exit = func(code int) { t.Error("exit must not be called when restart succeeds") }

	s.RestartApp()

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatal("restart was not invoked")
	}
}
