package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/utils"
)

const monitorLogLines = 40

type MonitorStatus struct {
	Running   bool     `json:"running"`
	Activity  *string  `json:"activity,omitempty"`
	StartedAt *int64   `json:"startedAt,omitempty"`
	LastError *string  `json:"lastError,omitempty"`
	Logs      []string `json:"logs"`
}

// MonitorService owns the lifecycle of the single local posture-monitor
// process. The rest of the system never touches the process handle; the
// monitor client reports events through POST /api/events on its own.
type MonitorService interface {
	Start(ctx context.Context, activity string) (MonitorStatus, error)
	Stop(ctx context.Context) MonitorStatus
	Status(ctx context.Context) MonitorStatus
}

type monitorService struct {
	log        *logger.Logger
	scriptPath string
	pythonBin  string

	mu        sync.Mutex
	cmd       *exec.Cmd
	exited    chan struct{}
	activity  *string
	startedAt *time.Time
	lastError *string
	logs      []string
}

func NewMonitorService(baseLog *logger.Logger) MonitorService {
	serviceLog := baseLog.With("service", "MonitorService")
	return &monitorService{
		log:        serviceLog,
		scriptPath: utils.GetEnv("MONITOR_SCRIPT_PATH", filepath.Join("python-client", "main.py"), baseLog),
		pythonBin:  utils.GetEnv("MONITOR_PYTHON_BIN", "python3", baseLog),
	}
}

func (s *monitorService) Start(ctx context.Context, activity string) (MonitorStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		return s.statusLocked(), nil
	}

	if _, err := os.Stat(s.scriptPath); err != nil {
		msg := fmt.Sprintf("monitor script not found: %s", s.scriptPath)
		s.lastError = &msg
		s.pushLog("Start failed: " + msg)
		return s.statusLocked(), fmt.Errorf("%s", msg)
	}

	cmd := exec.Command(s.pythonBin, s.scriptPath)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	if err := cmd.Start(); err != nil {
		msg := err.Error()
		s.lastError = &msg
		s.pushLog("Start failed: " + msg)
		return s.statusLocked(), fmt.Errorf("start monitor process: %w", err)
	}

	now := time.Now()
	s.cmd = cmd
	s.exited = make(chan struct{})
	s.startedAt = &now
	s.lastError = nil
	if strings.TrimSpace(activity) != "" {
		a := strings.TrimSpace(activity)
		s.activity = &a
	}
	s.pushLog(fmt.Sprintf("Started process with %s %s (pid %d)", s.pythonBin, s.scriptPath, cmd.Process.Pid))

	go s.reap(cmd, s.exited)

	return s.statusLocked(), nil
}

// reap clears the handle when the process exits so Status never reports a
// zombie as running. It owns the single Wait call for the process.
func (s *monitorService) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != cmd {
		return
	}
	if err != nil {
		msg := fmt.Sprintf("monitor stopped unexpectedly: %v", err)
		s.lastError = &msg
		s.pushLog(msg)
	} else {
		s.pushLog("Process exited")
	}
	s.cmd = nil
	s.startedAt = nil
}

func (s *monitorService) Stop(ctx context.Context) MonitorStatus {
	s.mu.Lock()
	if !s.running() {
		s.cmd = nil
		s.startedAt = nil
		status := s.statusLocked()
		s.mu.Unlock()
		return status
	}
	cmd := s.cmd
	exited := s.exited
	s.pushLog("Stop requested")
	s.mu.Unlock()

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	} else {
		// Give it a moment to shut down cleanly before forcing.
		select {
		case <-exited:
		case <-time.After(2500 * time.Millisecond):
			_ = cmd.Process.Kill()
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == cmd {
		s.cmd = nil
		s.startedAt = nil
	}
	return s.statusLocked()
}

func (s *monitorService) Status(ctx context.Context) MonitorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *monitorService) running() bool {
	return s.cmd != nil && s.cmd.Process != nil
}

func (s *monitorService) statusLocked() MonitorStatus {
	status := MonitorStatus{
		Running:   s.running(),
		Activity:  s.activity,
		LastError: s.lastError,
		Logs:      append([]string{}, s.logs...),
	}
	if s.startedAt != nil {
		ts := s.startedAt.Unix()
		status.StartedAt = &ts
	}
	return status
}

func (s *monitorService) pushLog(line string) {
	s.logs = append(s.logs, time.Now().Format(time.RFC3339)+" "+line)
	if len(s.logs) > monitorLogLines {
		s.logs = s.logs[len(s.logs)-monitorLogLines:]
	}
}
