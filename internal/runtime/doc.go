// Package runtime runs compiler processes on the local machine.
//
// A [Command] names an executable, its arguments, a working directory and
// environment overrides layered on top of the server's own environment.
// [Exec] runs it to completion, capturing standard output and standard
// error into a single interleaved transcript, the way a terminal would show
// them. A non-zero exit code is reported in the result rather than as an
// error; only failures to start or wait for the process, and cancellation,
// are errors.
//
// Cancelling the context sends the process an interrupt and, if it has not
// exited within [KillDelay], kills it.
//
// Example usage:
//
//	result, err := runtime.Exec(ctx, runtime.Command{
//	    Path: "csc",
//	    Args: []string{"/nologo", "Program.cs"},
//	    Dir:  "/src/app",
//	    Env:  []string{"TMPDIR=/tmp/build-1"},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Print(result.Output)
package runtime
