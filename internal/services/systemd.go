package services

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
)

// ErrUnknownAction reports an unsupported service-control verb.
func ErrUnknownAction(action string) error {
	return errors.Errorf(errors.KindValidation, "unknown service action %q (use start, stop or restart)", action)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}

// Systemd controls services through systemctl.
type Systemd struct {
	run     Runner
	timeout time.Duration
	logger  *logging.Logger
}

// NewSystemd returns a controller that shells out to systemctl.
func NewSystemd() *Systemd {
	return NewSystemdWithRunner(execRunner)
}

// NewSystemdWithRunner returns a controller using run to execute systemctl.
func NewSystemdWithRunner(run Runner) *Systemd {
	return &Systemd{
		run:     run,
		timeout: 30 * time.Second,
		logger:  logging.WithComponent("service"),
	}
}

func (s *Systemd) systemctl(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.run(ctx, "systemctl", args...)
}

func (s *Systemd) control(ctx context.Context, verb, name string) error {
	out, err := s.systemctl(ctx, verb, name)
	if err != nil {
		s.logger.WithError(err).Error("systemctl failed", "action", verb, "service", name, "output", out)
		msg := "failed to " + verb + " " + name
		if out != "" {
			msg += ": " + out
		}
		return errors.Wrap(err, errors.KindIO, msg)
	}
	s.logger.Info("service "+verb+" complete", "service", name)
	return nil
}

// Start starts the named service.
func (s *Systemd) Start(ctx context.Context, name string) error {
	return s.control(ctx, "start", name)
}

// Stop stops the named service.
func (s *Systemd) Stop(ctx context.Context, name string) error {
	return s.control(ctx, "stop", name)
}

// Restart restarts the named service.
func (s *Systemd) Restart(ctx context.Context, name string) error {
	return s.control(ctx, "restart", name)
}

// Status reports whether the named service is active and enabled.
// systemctl exits non-zero for inactive units, so only a missing
// status word is treated as an error.
func (s *Systemd) Status(ctx context.Context, name string) (ServiceStatus, error) {
	st := ServiceStatus{Name: name}

	active, err := s.systemctl(ctx, "is-active", name)
	if active == "" {
		if err == nil {
			err = errors.New(errors.KindIO, "empty systemctl output")
		}
		return st, errors.Wrapf(err, errors.KindIO, "failed to query status of %s", name)
	}
	st.Status = firstLine(active)
	st.Running = st.Status == "active"

	enabled, _ := s.systemctl(ctx, "is-enabled", name)
	st.Enabled = firstLine(enabled) == "enabled"

	if !st.Running {
		st.Message = name + " is " + st.Status
	}
	return st, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
