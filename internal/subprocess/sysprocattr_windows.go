//go:build windows

package subprocess

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
