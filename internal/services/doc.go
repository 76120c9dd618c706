// Package services holds cross-cutting helpers shared by the saga stages:
// the error taxonomy used to classify stage failures and context annotation
// helpers that thread session/stage identifiers into logs.
//
// Errors are built with Wrap, which tags the failure with one of the exported
// sentinel markers so callers can classify with errors.Is without string
// matching. Details recovers structured information from a wrapped error for
// logging and for the terminal failure record published to callers.
package services
