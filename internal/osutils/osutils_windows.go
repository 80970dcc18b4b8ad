//go:build windows

package osutils

import (
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// EnsureFirewallRule checks that an inbound rule for rule.Port exists and
// creates it through PowerShell otherwise, elevating via UAC when needed.
func EnsureFirewallRule(rule FirewallRule, logger *slog.Logger) error {
	if err := rule.validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("rule", rule.Name, "port", rule.Port, "protocol", rule.Protocol)

	output, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+rule.Name).CombinedOutput()
	if err == nil && rule.matches(string(output)) {
		logger.Debug("firewall: rule already present")
		return nil
	}
	logger.Info("firewall: creating rule")

	psCommand := rule.script()

	if !IsAdmin() {
		logger.Info("firewall: process is not elevated, requesting UAC elevation")

		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", psCommand))

		var showCmd int32 = 0 // SW_HIDE

		if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, showCmd); err != nil {
			return fmt.Errorf("firewall: launch elevated powershell: %w", err)
		}
		return nil
	}

	cmd := exec.Command("powershell", "-NoProfile", "-Command", psCommand)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("firewall: create rule: %w (output: %s)", err, string(output))
	}
	logger.Info("firewall: rule applied")
	return nil
}
