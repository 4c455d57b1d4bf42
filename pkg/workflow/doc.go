// Package workflow interprets declarative browser steps and runs them as
// workflows.
//
// An Interpreter executes one Step against a page through a closed registry
// of step kinds. An Orchestrator runs a step sequence on a page obtained
// from a Sessions implementation, applies the error and retention policy
// from Options, and returns an Execution report that always names the
// failing step.
//
// Steps run strictly in order. A failure either aborts the run or, with
// ContinueOnError, is recorded and the run goes on. No step is retried.
package workflow
