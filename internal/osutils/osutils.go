// Package osutils wraps the operating system chores around running a
// listener: privilege checks and opening the feed ports.
package osutils

import (
	"fmt"
	"strings"
)

// FirewallRule describes an inbound allow rule for one local port.
type FirewallRule struct {
	Name     string
	Port     int
	Protocol string // "TCP" or "UDP"
}

func (r FirewallRule) validate() error {
	if r.Name == "" || strings.ContainsAny(r.Name, `'"`) {
		return fmt.Errorf("firewall: invalid rule name %q", r.Name)
	}
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("firewall: invalid port %d", r.Port)
	}
	switch r.Protocol {
	case "TCP", "UDP":
	default:
		return fmt.Errorf("firewall: invalid protocol %q", r.Protocol)
	}
	return nil
}

// matches reports whether the "netsh advfirewall firewall show rule" output
// already describes r.
func (r FirewallRule) matches(output string) bool {
	return strings.Contains(output, r.Name) &&
		strings.Contains(output, fmt.Sprintf("%d", r.Port)) &&
		strings.Contains(output, r.Protocol) &&
		strings.Contains(output, "Allow")
}

// script is the PowerShell that replaces any rule with the same name.
func (r FirewallRule) script() string {
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol %s -Action Allow -Profile Private,Domain",
		r.Name, r.Name, r.Port, r.Protocol,
	)
}
