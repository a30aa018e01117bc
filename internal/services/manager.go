package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/leakdesk/internal/domain"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// Actions accepted by Control.
var Actions = []string{"start", "stop", "restart", "enable", "disable"}

const (
	// MaxLogChars caps journal output so it fits in one chat message.
	MaxLogChars = 4000

	DefaultLogLines = 20
	MaxLogLines     = 200

	probeParallelism = 4
	commandTimeout   = 15 * time.Second
)

var (
	ErrUnknownUnit   = errors.New("service not in monitored list")
	ErrInvalidAction = errors.New("invalid action")
)

type Options struct {
	UseSudo bool
}

// Manager observes and controls the units listed in services.yaml.
type Manager struct {
	units []domain.Unit
	run   Runner
	probe ProcessProbe
	opts  Options
	log   logger.Logger
	now   func() time.Time
}

func NewManager(units []domain.Unit, run Runner, probe ProcessProbe, opts Options, log logger.Logger) *Manager {
	if run == nil {
		run = ExecRunner{}
	}
	return &Manager{
		units: units,
		run:   run,
		probe: probe,
		opts:  opts,
		log:   log,
		now:   time.Now,
	}
}

// Units returns the monitored units in file order.
func (m *Manager) Units() []domain.Unit {
	out := make([]domain.Unit, len(m.units))
	copy(out, m.units)
	return out
}

// Lookup finds a monitored unit by its name, with or without the ".service"
// suffix.
func (m *Manager) Lookup(name string) (domain.Unit, bool) {
	name = strings.TrimSpace(name)
	for _, u := range m.units {
		if u.Name == name || u.Name == name+".service" {
			return u, true
		}
	}
	return domain.Unit{}, false
}

// Status inspects one unit. Failures are reported through Record.Status,
// never as an error, so one broken unit does not hide the others.
func (m *Manager) Status(ctx context.Context, u domain.Unit) Record {
	rec := Record{Name: u.Name, DisplayName: u.DisplayName, Description: u.Description, Status: StatusUnknown}

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, stderr, err := m.run.Run(cctx, "systemctl", "show", u.Name, "--no-pager", "--timestamp=unix",
		"--property=LoadState,ActiveState,UnitFileState,MainPID,ActiveEnterTimestamp")
	if err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			rec.Status = StatusNotFound
		} else {
			rec.Status = StatusError
		}
		m.log.Warn("systemctl show failed",
			logger.String("unit", u.Name),
			logger.String("stderr", strings.TrimSpace(string(stderr))),
			logger.Error(err))
		return rec
	}

	props := parseShow(out)
	if props["LoadState"] == "not-found" {
		rec.Status = StatusNotFound
		return rec
	}
	if s := props["ActiveState"]; s != "" {
		rec.Status = s
	}
	rec.Active = rec.Status == "active"
	rec.Enabled = props["UnitFileState"] == "enabled"

	if since := parseTimestamp(props["ActiveEnterTimestamp"]); rec.Active && !since.IsZero() {
		rec.Since = since
		rec.Uptime = FormatUptime(m.now().Sub(since))
	}

	if pid, err := strconv.ParseInt(props["MainPID"], 10, 32); err == nil && pid > 0 {
		rec.PID = int32(pid)
		if m.probe != nil {
			if mem, cpu, err := m.probe.Usage(cctx, rec.PID); err == nil {
				rec.MemoryMB, rec.CPUPercent = mem, cpu
			}
		}
	}
	return rec
}

// StatusAll inspects every unit concurrently. The result keeps file order.
func (m *Manager) StatusAll(ctx context.Context) []Record {
	records := make([]Record, len(m.units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeParallelism)
	for i, u := range m.units {
		g.Go(func() error {
			records[i] = m.Status(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// Control runs a systemctl action on a monitored unit.
func (m *Manager) Control(ctx context.Context, action, name string) (ActionResult, error) {
	u, ok := m.Lookup(name)
	if !ok {
		return ActionResult{Message: ErrUnknownUnit.Error()}, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}
	if !validAction(action) {
		return ActionResult{Message: ErrInvalidAction.Error()}, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	cmd, args := "systemctl", []string{action, u.Name}
	if m.opts.UseSudo {
		cmd, args = "sudo", append([]string{"-n", "systemctl"}, args...)
	}

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, stderr, err := m.run.Run(cctx, cmd, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		m.log.Error("service action failed",
			logger.String("unit", u.Name),
			logger.String("action", action),
			logger.String("stderr", msg))
		return ActionResult{Message: fmt.Sprintf("Service %s failed: %s", action, msg)}, nil
	}

	m.log.Info("service action completed",
		logger.String("unit", u.Name),
		logger.String("action", action))
	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Service %s completed successfully", action),
		Output:  strings.TrimSpace(string(out)),
	}, nil
}

// Logs returns the last lines of the unit's journal, capped at MaxLogChars.
func (m *Manager) Logs(ctx context.Context, name string, lines int) (string, error) {
	u, ok := m.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}
	lines = ClampLines(lines)

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, stderr, err := m.run.Run(cctx, "journalctl", "-u", u.Name, "-n", strconv.Itoa(lines), "--no-pager")
	if err != nil {
		return "", fmt.Errorf("journalctl %s: %s: %w", u.Name, strings.TrimSpace(string(stderr)), err)
	}
	return TailChars(string(out), MaxLogChars), nil
}

// ClampLines bounds a requested journal length.
func ClampLines(n int) int {
	switch {
	case n < 1:
		return DefaultLogLines
	case n > MaxLogLines:
		return MaxLogLines
	default:
		return n
	}
}

// TailChars keeps the last max runes of s, cutting at a line start when possible.
func TailChars(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	tail := string(r[len(r)-max:])
	if i := strings.IndexByte(tail, '\n'); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return tail
}

func validAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}
