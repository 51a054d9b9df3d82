// Completion: 100% - Linux x86-64 syscall number table
package main

import "golang.org/x/sys/unix"

// SyscallNumber resolves the syscall names the standard library
// (`#![imports(...)]`) surface can name to their Linux x86-64 numbers,
// sourced from golang.org/x/sys/unix's generated constants rather than a
// hand-maintained table. Neither the lowering pass nor the `run` command
// calls it.
func SyscallNumber(name string) (int64, bool) {
	switch name {
	case "read":
		return unix.SYS_READ, true
	case "write":
		return unix.SYS_WRITE, true
	case "open":
		return unix.SYS_OPEN, true
	case "close":
		return unix.SYS_CLOSE, true
	case "mmap":
		return unix.SYS_MMAP, true
	case "munmap":
		return unix.SYS_MUNMAP, true
	case "exit":
		return unix.SYS_EXIT, true
	case "exit_group":
		return unix.SYS_EXIT_GROUP, true
	case "brk":
		return unix.SYS_BRK, true
	case "fork":
		return unix.SYS_FORK, true
	case "execve":
		return unix.SYS_EXECVE, true
	case "wait4":
		return unix.SYS_WAIT4, true
	case "getpid":
		return unix.SYS_GETPID, true
	case "nanosleep":
		return unix.SYS_NANOSLEEP, true
	default:
		return 0, false
	}
}

// WaitStatusExitCode extracts the child's numeric exit status from a wait
// status: a normally-exited child's own code, or 128+signal for one killed
// by a signal, mirroring the shell convention. The `run` command does not
// call it; runExecutable takes the code from exec.ExitError.ExitCode().
func WaitStatusExitCode(ws unix.WaitStatus) int {
	if ws.Exited() {
		return ws.ExitStatus()
	}
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}
