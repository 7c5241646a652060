package logger

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/thushan/switchyard/theme"
)

// StyledLogger wraps slog.Logger with Theme-aware formatting
type StyledLogger struct {
	logger *slog.Logger
	Theme  *theme.Theme
}

func NewStyledLogger(logger *slog.Logger, theme *theme.Theme) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		Theme:  theme,
	}
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Counts}.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithEndpoint(msg string, endpoint string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Endpoint}.Sprint(endpoint))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithHealthCheck(msg string, check string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.HealthCheck}.Sprint(check))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) WarnWithEndpoint(msg string, endpoint string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Endpoint}.Sprint(endpoint))
	sl.logger.Warn(styledMsg, args...)
}

func (sl *StyledLogger) InfoHealthStatus(msg string, name string, healthy bool, args ...any) {
	statusColor := sl.Theme.HealthUnhealthy
	statusText := "Unhealthy"
	if healthy {
		statusColor = sl.Theme.HealthHealthy
		statusText = "Healthy"
	}
	styledMsg := fmt.Sprintf("%s %s is %s", msg, pterm.Style{sl.Theme.Endpoint}.Sprint(name), pterm.Style{statusColor}.Sprint(statusText))
	sl.logger.Info(styledMsg, args...)
}

// InfoFailover logs a change of the recommended endpoint, previous may be empty
func (sl *StyledLogger) InfoFailover(previous, next, reason string, args ...any) {
	from := previous
	if from == "" {
		from = "none"
	}
	styledMsg := fmt.Sprintf("Failover %s -> %s (%s)",
		pterm.Style{sl.Theme.Endpoint}.Sprint(from),
		pterm.Style{sl.Theme.Endpoint}.Sprint(next),
		pterm.Style{sl.Theme.Failover}.Sprint(reason))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoConfigChange(what string) {
	styledMsg := fmt.Sprintf("Configuration reloaded for %s", pterm.Style{sl.Theme.Endpoint}.Sprint(what))
	sl.logger.Info(styledMsg)
}

func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{
		logger: sl.logger.With(args...),
		Theme:  sl.Theme,
	}
}

func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := theme.GetTheme(cfg.Theme)
	styledLogger := NewStyledLogger(logger, appTheme)

	return logger, styledLogger, cleanup, nil
}
