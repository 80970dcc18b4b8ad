//go:build !windows

package osutils

import "log/slog"

// IsAdmin is a stub for non-Windows platforms
func IsAdmin() bool {
	return false
}

// EnsureFirewallRule is a stub for non-Windows platforms
func EnsureFirewallRule(rule FirewallRule, logger *slog.Logger) error {
	if err := rule.validate(); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("firewall: automatic rule management is only supported on Windows", "rule", rule.Name)
	}
	return nil
}
