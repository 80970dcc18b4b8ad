//go:build !windows

package autostart

import "errors"

var errNotWindows = errors.New("autostart: registry not available")

func enableWindows(string, []string) error { return errNotWindows }

func disableWindows() error { return errNotWindows }

func isEnabledWindows() bool { return false }
