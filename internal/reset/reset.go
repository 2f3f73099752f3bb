// Package reset implements the user-initiated factory reset: wipe the
// data directory, then restart or close the daemon.
package reset

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// shutdownDelay lets the HTTP response that triggered the reset reach
// the client before the process goes away.
const shutdownDelay = 500 * time.Millisecond

type Service struct {
	dataDir string
	logger  *zap.Logger

	// exit and restart are swappable for tests.
	exit    func(code int)
	restart func() error
}

func NewService(dataDir string, logger *zap.Logger) *Service {
	return &Service{
		dataDir: dataDir,
		logger:  logger,
		exit:    os.Exit,
		restart: restartProcess,
	}
}

// Wipe permanently deletes the data directory. A directory that never
// existed counts as success: there is nothing to delete.
func (s *Service) Wipe() error {
	if _, err := os.Stat(s.dataDir); os.IsNotExist(err) {
		s.logger.Info("No data directory to delete", zap.String("dir", s.dataDir))
		return nil
	}
	if err := os.RemoveAll(s.dataDir); err != nil {
		return fmt.Errorf("factory reset failed: %w", err)
	}
	s.logger.Info("Deleted data directory", zap.String("dir", s.dataDir))
	return nil
}

// RestartApp schedules a process restart after a short delay.
func (s *Service) RestartApp() {
	go func() {
		time.Sleep(shutdownDelay)
		if err := s.restart(); err != nil {
			s.logger.Error("Restart failed, exiting instead", zap.Error(err))
			s.exit(0)
		}
	}()
}

// CloseApp schedules a process exit after a short delay.
func (s *Service) CloseApp() {
	go func() {
		time.Sleep(shutdownDelay)
		s.exit(0)
	}()
}

func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
