// Package process runs external engine binaries as blocking subprocesses.
//
// Every invocation is bounded by its context deadline. Non-zero exits and
// timeouts are reported as *domain.EngineError carrying captured stderr,
// so callers can branch with errors.Is(err, domain.ErrEngineExecutionFailed).
// Scratch files live in the system temp directory and are removed when the
// scoped helper returns, whether or not the command succeeded.
package process
