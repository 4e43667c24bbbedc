// Package agent drives the conversational tool loop. The package focuses on
// three concerns:
//
//  1. Presentation (Presenter): walk parsed segments left to right, emit text,
//     dispatch tools, and treat attempt_completion as an explicit state
//  2. Turns (TurnController): stream one backend response, re-parse the full
//     buffer after each delta and decide whether the task continues
//  3. Tasks (TaskLoop): chain turns with the continuation prompt and start a
//     fresh conversation when the operator hands off a follow-up task
//
// Execution Model:
//   - One backend stream is outstanding at a time; tools run one after another
//   - Re-parsing is idempotent, so only new trailing segments are presented
//   - Cancellation is cooperative and checked at every delta and segment
//
// Operator I/O is abstracted behind Operator so consoles, tests and other
// front ends plug in without touching the loop.
package agent
