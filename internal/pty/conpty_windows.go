//go:build windows

package pty

import (
	"fmt"
	"os"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

// conPty is a Windows pseudo-console hosting one child process inside a
// job object, so the child tree dies when the server exits or the pane is
// killed.
type conPty struct {
	console windows.Handle
	input   *os.File // our write end of the child's input
	output  *os.File // our read end of the child's output
	process windows.Handle
	job     windows.Handle
}

// NewSpawner returns the ConPTY-backed spawner.
func NewSpawner() Spawner {
	return conPtySpawner{}
}

type conPtySpawner struct{}

// Spawn allocates a ConPTY of the requested size and starts the command
// inside it, attached to a kill-on-close job object.
func (conPtySpawner) Spawn(opts SpawnOptions) (Pty, error) {
	var inputRead, inputWrite windows.Handle
	var outputRead, outputWrite windows.Handle

	if err := windows.CreatePipe(&inputRead, &inputWrite, nil, 0); err != nil {
		return nil, fmt.Errorf("pty: input pipe: %w", err)
	}
	if err := windows.CreatePipe(&outputRead, &outputWrite, nil, 0); err != nil {
		closeHandles(inputRead, inputWrite)
		return nil, fmt.Errorf("pty: output pipe: %w", err)
	}

	size := windows.Coord{
		X: int16(opts.Size.Cols),
		Y: int16(opts.Size.Rows),
	}
	var console windows.Handle
	if err := windows.CreatePseudoConsole(size, inputRead, outputWrite, 0, &console); err != nil {
		closeHandles(inputRead, inputWrite, outputRead, outputWrite)
		return nil, fmt.Errorf("pty: CreatePseudoConsole: %w", err)
	}
	// The console now owns its ends of the pipes.
	closeHandles(inputRead, outputWrite)

	attrs, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		windows.ClosePseudoConsole(console)
		closeHandles(inputWrite, outputRead)
		return nil, fmt.Errorf("pty: attribute list: %w", err)
	}
	defer attrs.Delete()

	attrs.Update(
		windows.PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE,
		unsafe.Pointer(console),
		unsafe.Sizeof(console),
	)

	siEx := windows.StartupInfoEx{
		ProcThreadAttributeList: attrs.List(),
	}
	siEx.StartupInfo.Cb = uint32(unsafe.Sizeof(siEx))

	cmdline, err := windows.UTF16PtrFromString(opts.Command)
	if err != nil {
		windows.ClosePseudoConsole(console)
		closeHandles(inputWrite, outputRead)
		return nil, fmt.Errorf("pty: command line: %w", err)
	}
	var dir *uint16
	if opts.Dir != "" {
		if dir, err = windows.UTF16PtrFromString(opts.Dir); err != nil {
			windows.ClosePseudoConsole(console)
			closeHandles(inputWrite, outputRead)
			return nil, fmt.Errorf("pty: working dir: %w", err)
		}
	}

	var pi windows.ProcessInformation
	flags := uint32(windows.EXTENDED_STARTUPINFO_PRESENT | windows.CREATE_UNICODE_ENVIRONMENT)
	err = windows.CreateProcess(
		nil,
		cmdline,
		nil,
		nil,
		false,
		flags,
		envBlock(opts.Env),
		dir,
		&siEx.StartupInfo,
		&pi,
	)
	if err != nil {
		windows.ClosePseudoConsole(console)
		closeHandles(inputWrite, outputRead)
		return nil, fmt.Errorf("pty: CreateProcess: %w", err)
	}
	windows.CloseHandle(pi.Thread)

	job, err := newKillOnCloseJob()
	if err != nil {
		windows.TerminateProcess(pi.Process, 1)
		windows.CloseHandle(pi.Process)
		windows.ClosePseudoConsole(console)
		closeHandles(inputWrite, outputRead)
		return nil, err
	}
	if err := windows.AssignProcessToJobObject(job, pi.Process); err != nil {
		windows.CloseHandle(job)
		windows.TerminateProcess(pi.Process, 1)
		windows.CloseHandle(pi.Process)
		windows.ClosePseudoConsole(console)
		closeHandles(inputWrite, outputRead)
		return nil, fmt.Errorf("pty: assign to job: %w", err)
	}

	return &conPty{
		console: console,
		input:   os.NewFile(uintptr(inputWrite), "|pty-in"),
		output:  os.NewFile(uintptr(outputRead), "|pty-out"),
		process: pi.Process,
		job:     job,
	}, nil
}

// newKillOnCloseJob creates a job object whose processes are terminated
// when the last job handle closes.
func newKillOnCloseJob() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, fmt.Errorf("pty: create job: %w", err)
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return 0, fmt.Errorf("pty: job limits: %w", err)
	}
	return job, nil
}

// envBlock converts KEY=VALUE strings into a double-NUL-terminated UTF-16
// environment block. Returns nil to inherit the parent environment.
func envBlock(env []string) *uint16 {
	if env == nil {
		return nil
	}
	var block []uint16
	for _, kv := range env {
		block = append(block, utf16.Encode([]rune(kv))...)
		block = append(block, 0)
	}
	block = append(block, 0)
	return &block[0]
}

func closeHandles(handles ...windows.Handle) {
	for _, h := range handles {
		windows.CloseHandle(h)
	}
}

func (p *conPty) Read(b []byte) (int, error) {
	return p.output.Read(b)
}

func (p *conPty) Write(b []byte) (int, error) {
	return p.input.Write(b)
}

func (p *conPty) Resize(size Size) error {
	coord := windows.Coord{X: int16(size.Cols), Y: int16(size.Rows)}
	if err := windows.ResizePseudoConsole(p.console, coord); err != nil {
		return fmt.Errorf("pty: resize: %w", err)
	}
	return nil
}

func (p *conPty) Kill() error {
	return windows.TerminateJobObject(p.job, 1)
}

func (p *conPty) Wait() (int, error) {
	_, err := windows.WaitForSingleObject(p.process, windows.INFINITE)
	if err != nil {
		return -1, fmt.Errorf("pty: wait: %w", err)
	}
	var code uint32
	if err := windows.GetExitCodeProcess(p.process, &code); err != nil {
		return -1, fmt.Errorf("pty: exit code: %w", err)
	}
	return int(code), nil
}

func (p *conPty) Close() error {
	// Closing the pseudo-console disconnects the child's console; the
	// job handle close then kills anything still running.
	windows.ClosePseudoConsole(p.console)
	p.input.Close()
	p.output.Close()
	windows.CloseHandle(p.process)
	return windows.CloseHandle(p.job)
}
