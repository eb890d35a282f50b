// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package latticeerr defines the categorized error kinds that cross
// component boundaries in lattice: the Object Store, Catalog, and
// Repository Facade all return errors wrapped in *Error so the CLI
// layer can map them to exit codes without parsing message text.
package latticeerr

import "fmt"

// Kind classifies an error for programmatic handling by callers (the
// CLI's exit-code mapping, the orchestrator's retry loop).
type Kind string

const (
	// KindPathNotFound indicates a local filesystem path does not exist.
	KindPathNotFound Kind = "path_not_found"
	// KindPathIsDirectory indicates a path that was expected to be a
	// regular file is a directory instead.
	KindPathIsDirectory Kind = "path_is_directory"
	// KindIO indicates a local filesystem I/O failure unrelated to
	// existence (permission, disk full, etc).
	KindIO Kind = "io_error"
	// KindCatalog indicates a transactional catalog failure; the
	// triggering transaction was rolled back.
	KindCatalog Kind = "catalog_error"
	// KindNotFound indicates a requested object or reference is absent.
	KindNotFound Kind = "not_found"
	// KindAmbiguousReference indicates a digest prefix resolved to more
	// than one object.
	KindAmbiguousReference Kind = "ambiguous_reference"
	// KindEmptyCommit indicates commit was called with nothing staged.
	KindEmptyCommit Kind = "empty_commit"
	// KindNoCommit indicates amend was called on a branch with no head.
	KindNoCommit Kind = "no_commit"
	// KindBranchExists indicates branch creation named an existing branch.
	KindBranchExists Kind = "branch_exists"
	// KindUnknownBranch indicates checkout or branch --delete named a
	// branch that does not exist.
	KindUnknownBranch Kind = "unknown_branch"
	// KindInitExists indicates init was called on a directory that
	// already holds a repository.
	KindInitExists Kind = "init_exists"
	// KindDeleteCurrentBranch indicates branch --delete targeted the
	// checked-out branch.
	KindDeleteCurrentBranch Kind = "delete_current_branch"
	// KindDigestMismatch indicates a caller-supplied digest did not
	// match the hash of the bytes actually written or received.
	KindDigestMismatch Kind = "digest_mismatch"
	// KindCorruptObject indicates an object read from the store does
	// not hash to its own storage key.
	KindCorruptObject Kind = "corrupt_object"
	// KindPeerUnreachable indicates a dial to a peer address failed.
	KindPeerUnreachable Kind = "peer_unreachable"
	// KindTimeout indicates a request exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindProtocolError indicates malformed or version-mismatched wire
	// data from a peer.
	KindProtocolError Kind = "protocol_error"
	// KindCorruptTransfer indicates a peer delivered a chunk whose
	// digest, after decompression, did not match the request.
	KindCorruptTransfer Kind = "corrupt_transfer"
)

// Error wraps an underlying error with a Kind. Construct with the
// Kind-specific helpers below rather than building this struct
// directly, so that call sites read as "what went wrong" rather than
// "what struct to fill in".
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the underlying message. The Kind is not included in
// the string — callers that care about it use errors.As to recover
// the Kind for programmatic handling (exit codes, retry policy).
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap exposes the underlying error so errors.Is/errors.As walk the
// full chain through Error.
func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func PathNotFound(format string, args ...any) *Error      { return wrap(KindPathNotFound, format, args...) }
func PathIsDirectory(format string, args ...any) *Error   { return wrap(KindPathIsDirectory, format, args...) }
func IO(format string, args ...any) *Error                { return wrap(KindIO, format, args...) }
func Catalog(format string, args ...any) *Error           { return wrap(KindCatalog, format, args...) }
func NotFound(format string, args ...any) *Error          { return wrap(KindNotFound, format, args...) }
func AmbiguousReference(format string, args ...any) *Error {
	return wrap(KindAmbiguousReference, format, args...)
}
func EmptyCommit(format string, args ...any) *Error  { return wrap(KindEmptyCommit, format, args...) }
func NoCommit(format string, args ...any) *Error     { return wrap(KindNoCommit, format, args...) }
func BranchExists(format string, args ...any) *Error { return wrap(KindBranchExists, format, args...) }
func UnknownBranch(format string, args ...any) *Error {
	return wrap(KindUnknownBranch, format, args...)
}
func InitExists(format string, args ...any) *Error { return wrap(KindInitExists, format, args...) }
func DeleteCurrentBranch(format string, args ...any) *Error {
	return wrap(KindDeleteCurrentBranch, format, args...)
}
func DigestMismatch(format string, args ...any) *Error {
	return wrap(KindDigestMismatch, format, args...)
}
func CorruptObject(format string, args ...any) *Error {
	return wrap(KindCorruptObject, format, args...)
}
func PeerUnreachable(format string, args ...any) *Error {
	return wrap(KindPeerUnreachable, format, args...)
}
func Timeout(format string, args ...any) *Error { return wrap(KindTimeout, format, args...) }
func ProtocolError(format string, args ...any) *Error {
	return wrap(KindProtocolError, format, args...)
}
func CorruptTransfer(format string, args ...any) *Error {
	return wrap(KindCorruptTransfer, format, args...)
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// as is a tiny local shim over errors.As to avoid importing the
// "errors" package just for this one call site in a file that
// otherwise only needs fmt.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ExitCode maps a Kind to the process exit code documented in spec §6.
// Kinds not named there (catalog/IO/protocol failures surfaced outside
// a specific command) fall back to the generic failure code 1.
func ExitCode(kind Kind) int {
	switch kind {
	case KindAmbiguousReference:
		return 2
	case KindPathNotFound, KindPathIsDirectory, KindEmptyCommit, KindNoCommit,
		KindBranchExists, KindUnknownBranch, KindInitExists, KindDeleteCurrentBranch,
		KindNotFound, KindCatalog, KindIO, KindDigestMismatch, KindCorruptObject,
		KindPeerUnreachable, KindTimeout, KindProtocolError, KindCorruptTransfer:
		return 1
	default:
		return 1
	}
}
