// Package process supervises the Neovim child process.
//
// A Supervisor starts commands with their stdin and stdout piped, so the
// RPC connection can run over them, and drains stderr into the logger line
// by line. Every process gets a uuid, and its exit is tracked:
//
//	sup := process.NewSupervisor(process.WithLogger(log))
//	defer sup.Shutdown(2 * time.Second)
//
//	proc, err := sup.Start("nvim", exec.Command("nvim", "--embed"))
//	if err != nil {
//	    return err
//	}
//	conn := rpc.NewConn(proc.Stdout, proc.Stdin, proc)
//
// Stopping a process closes its stdin first, which makes an embedded
// Neovim exit on its own. Processes still running after the grace period
// get SIGTERM and finally SIGKILL.
//
// Supervisor and Process are safe for concurrent use.
package process
