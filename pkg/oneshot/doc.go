// Package oneshot builds the ICU data package in one go: it configures and compiles
// ICU in a scratch directory, then turns the resulting data file into the stub data
// artifact.
//
// The work is split into three phases (prepare, build and finalize) which are driven
// by an Orchestrator. External tools run through an embedded POSIX shell so the
// command lines from the settings behave the same on every platform.
package oneshot
