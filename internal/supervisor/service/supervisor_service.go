package service

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"market-attention/internal/supervisor/config"
	"market-attention/internal/supervisor/dto"
	"market-attention/pkg/logger"
	"market-attention/pkg/telegram"
	"market-attention/pkg/utils"
)

// Process states reported by the status API.
const (
	StateRunning = "running"
	StateExited  = "exited"
	StateStopped = "stopped"
)

// SupervisorService keeps a fixed set of child processes alive.
type SupervisorService interface {
	// Start launches every process and supervises them until ctx is done, then terminates
	// them: SIGTERM first, SIGKILL for anything still alive after the grace period.
	Start(ctx context.Context)
	Processes() []dto.ProcessResponse
}

type child struct {
	spec      config.Process
	cmd       *exec.Cmd
	state     string
	restarts  int
	startedAt time.Time
	exitedAt  time.Time
	lastExit  string
	done      chan struct{}
}

type supervisorService struct {
	cfg      config.Supervisor
	notifier telegram.Notifier
	logger   *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	children []*child
	stopping bool
}

const alertTimeout = 10 * time.Second

// NewSupervisorService creates a supervisor for cfg.Processes. A nil notifier disables alerts.
func NewSupervisorService(cfg config.Supervisor, notifier telegram.Notifier, log *logger.Logger) SupervisorService {
	if notifier == nil {
		notifier = telegram.NewNop()
	}
	children := make([]*child, len(cfg.Processes))
	for i, p := range cfg.Processes {
		children[i] = &child{spec: p, state: StateStopped}
	}
	return &supervisorService{
		cfg:      cfg,
		notifier: notifier,
		logger:   log.Named("supervisor"),
		now:      time.Now,
		children: children,
	}
}

func (s *supervisorService) Start(ctx context.Context) {
	s.mu.Lock()
	for _, c := range s.children {
		s.launch(c)
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

// poll relaunches every process that has been down for at least the backoff delay,
// whatever its exit status was.
func (s *supervisorService) poll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return
	}
	now := s.now()
	for _, c := range s.children {
		if c.state != StateExited || now.Sub(c.exitedAt) < s.cfg.Backoff {
			continue
		}
		c.restarts++
		s.logger.Warn("Restarting process",
			logger.StringField("process", c.spec.Name),
			logger.StringField("last_exit", c.lastExit),
			logger.IntField("restarts", c.restarts),
		)
		s.launch(c)
		s.alert(c, now)
	}
}

// launch must be called with s.mu held.
func (s *supervisorService) launch(c *child) {
	cmd := exec.Command(c.spec.Command, c.spec.Args...)
	cmd.Env = append(os.Environ(), c.spec.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		s.logger.Error("Failed to start process", logger.StringField("process", c.spec.Name), logger.ErrorField(err))
		c.cmd = nil
		c.state = StateExited
		c.exitedAt = s.now()
		c.lastExit = err.Error()
		return
	}

	done := make(chan struct{})
	c.cmd = cmd
	c.done = done
	c.state = StateRunning
	c.startedAt = s.now()
	s.logger.Info("Process started", logger.StringField("process", c.spec.Name), logger.IntField("pid", cmd.Process.Pid))

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		c.exitedAt = s.now()
		c.lastExit = exitStatus(err)
		if s.stopping {
			c.state = StateStopped
		} else {
			c.state = StateExited
		}
		s.mu.Unlock()
		close(done)

		s.logger.Info("Process exited", logger.StringField("process", c.spec.Name), logger.StringField("status", exitStatus(err)))
	}()
}

func (s *supervisorService) alert(c *child, at time.Time) {
	msg := telegram.FormatRestartMessage(c.spec.Name, c.lastExit, c.restarts, at)
	utils.GoSafe(s.logger, func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := s.notifier.SendMessage(ctx, msg); err != nil {
			s.logger.Error("Failed to send restart alert", logger.StringField("process", c.spec.Name), logger.ErrorField(err))
		}
	})
}

func (s *supervisorService) shutdown() {
	s.mu.Lock()
	s.stopping = true
	var waits []chan struct{}
	var running []*child
	for _, c := range s.children {
		if c.state != StateRunning {
			c.state = StateStopped
			continue
		}
		running = append(running, c)
		waits = append(waits, c.done)
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.logger.Warn("Failed to signal process", logger.StringField("process", c.spec.Name), logger.ErrorField(err))
		}
	}
	s.mu.Unlock()

	s.logger.Info("Waiting for processes to exit", logger.DurationField("grace_period", s.cfg.GracePeriod))

	deadline := time.NewTimer(s.cfg.GracePeriod)
	defer deadline.Stop()
	for i, done := range waits {
		select {
		case <-done:
		case <-deadline.C:
			for _, c := range running[i:] {
				select {
				case <-c.done:
				default:
					s.logger.Warn("Grace period elapsed, killing process", logger.StringField("process", c.spec.Name))
					_ = c.cmd.Process.Kill()
				}
			}
			for _, c := range running[i:] {
				<-c.done
			}
			return
		}
	}
}

func (s *supervisorService) Processes() []dto.ProcessResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]dto.ProcessResponse, 0, len(s.children))
	for _, c := range s.children {
		resp := dto.ProcessResponse{
			Name:     c.spec.Name,
			State:    c.state,
			Restarts: c.restarts,
			LastExit: c.lastExit,
		}
		if c.state == StateRunning && c.cmd != nil {
			resp.PID = c.cmd.Process.Pid
		}
		if !c.startedAt.IsZero() {
			resp.StartedAt = utils.ToPointer(c.startedAt.UTC())
		}
		out = append(out, resp)
	}
	return out
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Error()
	}
	return err.Error()
}
