package main

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Scheduler arranges for a command to be run again later. The login flow never calls
// it directly; the CLI hands it to the retry driver's success hook.
type Scheduler interface {
	ScheduleRecurring(command []string, interval time.Duration) error
}

const cronComment = "Automatically log into hotspot every 24 hours."

// ErrUnsupportedInterval is returned for intervals cron cannot express as one line.
var ErrUnsupportedInterval = errors.New("unsupported schedule interval")

// CrontabScheduler edits the current user's crontab through the crontab binary.
type CrontabScheduler struct {
	logger Logger
	now    func() time.Time
	run    func(stdin, name string, args ...string) (string, error)
}

func NewCrontabScheduler(logger Logger) *CrontabScheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CrontabScheduler{logger: logger, now: time.Now, run: runCommand}
}

func runCommand(stdin, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ScheduleRecurring pins the command's crontab line to the current time of day,
// creating the line if there is none.
func (s *CrontabScheduler) ScheduleRecurring(command []string, interval time.Duration) error {
	if len(command) == 0 {
		return errors.New("empty command")
	}
	now := s.now()
	timing, err := cronTiming(now, interval)
	if err != nil {
		return err
	}

	current, err := s.run("", "crontab", "-l")
	if err != nil {
		// crontab -l fails when the user has no table yet.
		s.logger.Debug("No existing crontab: %v", err)
		current = ""
	}

	name := filepath.Base(command[0])
	s.logger.Info("Cron scheduling %s (minute: %d hour: %d)", name, now.Minute(), now.Hour())

	updated, matches := updateCrontab(current, name, strings.Join(command, " "), timing)
	switch {
	case matches == 0:
		s.logger.Info("No existing job detected. Creating a new one")
	case matches > 1:
		s.logger.Warn("More than 1 cron lines for %s. Using the first one.", name)
	}

	if _, err := s.run(updated, "crontab", "-"); err != nil {
		return fmt.Errorf("failed to write crontab: %w", err)
	}
	return nil
}

// cronTiming renders the five schedule fields for an interval starting at now.
func cronTiming(now time.Time, interval time.Duration) (string, error) {
	switch interval {
	case 24 * time.Hour:
		return fmt.Sprintf("%d %d * * *", now.Minute(), now.Hour()), nil
	case time.Hour:
		return fmt.Sprintf("%d * * * *", now.Minute()), nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnsupportedInterval, interval)
}

// updateCrontab retimes the first job line mentioning name, or appends a new job.
// It returns the new table and how many job lines mentioned name.
func updateCrontab(table, name, command, timing string) (string, int) {
	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	if table == "" {
		lines = nil
	}

	matches := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, name) {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 6 {
			continue
		}
		matches++
		if matches == 1 {
			lines[i] = timing + " " + strings.Join(fields[5:], " ")
		}
	}

	if matches == 0 {
		lines = append(lines, fmt.Sprintf("%s %s # %s", timing, command, cronComment))
	}
	return strings.Join(lines, "\n") + "\n", matches
}
