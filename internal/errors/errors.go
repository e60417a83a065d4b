// Package errors provides the error vocabulary for hs-tools. It defines sentinel
// errors, domain error types carrying structured context, and classification
// helpers used by the command layer to pick an exit code.
//
// # Error Types
//
// Domain-specific errors represent failures of a subsystem:
//   - CacheError: cache directory, index, or payload failures
//   - FetchError: upstream HTTP failures (transport, status, decode)
//   - LockError: advisory lock acquisition failures
//   - GitError: repository access and history walking failures
//   - ConfigError: invalid configuration
//
// # Usage
//
//	err := errors.NewFetchError("registry lookup failed", errors.ErrUpstreamStatus).
//		WithURL(u).WithStatus(502, "bad gateway")
//
//	var fetchErr *errors.FetchError
//	if errors.As(err, &fetchErr) { ... }
//
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Process exit codes. One code per failure class.
const (
	ExitOK          = 0
	ExitToolError   = 1
	ExitUnexpected  = 2
	ExitInterrupted = 130
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Cache-related sentinel errors
var (
	// ErrCacheIndexVersion indicates the on-disk index uses another schema version.
	ErrCacheIndexVersion = New("cache index version mismatch")
	// ErrCachePayloadMissing indicates an indexed payload file is gone.
	ErrCachePayloadMissing = New("cache payload missing")
)

// Fetch-related sentinel errors
var (
	// ErrUpstreamTransport indicates the request never produced an HTTP response.
	ErrUpstreamTransport = New("upstream transport failure")
	// ErrUpstreamStatus indicates a non-2xx, non-404 response.
	ErrUpstreamStatus = New("upstream returned an error status")
	// ErrUpstreamDecode indicates the response body was not valid JSON.
	ErrUpstreamDecode = New("upstream response could not be decoded")
)

// Lock-related sentinel errors
var (
	// ErrLocked indicates another live process holds the lock.
	ErrLocked = New("working directory is locked by another process")
	// ErrLockLost indicates the lock file disappeared while held.
	ErrLockLost = New("lock file disappeared while held")
)

// Git-related sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrRevisionNotFound indicates that a revision could not be resolved.
	ErrRevisionNotFound = New("revision not found")
	// ErrNoRemote indicates the repository has no usable GitHub remote.
	ErrNoRemote = New("no GitHub remote configured")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrInterrupted indicates the process received an interrupt signal.
	ErrInterrupted = New("interrupted")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ToolError is the base interface for all hs-tools errors.
type ToolError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

func newBase(message string, cause error) baseError {
	return baseError{
		message:    message,
		cause:      cause,
		severity:   SeverityError,
		userFacing: true,
	}
}

// format renders "<prefix> [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CacheError represents errors related to the response cache.
//
// Example:
//
//	err := errors.NewCacheError("failed to write payload", ioErr).WithEntry("npm", "bcrypto.json")
type CacheError struct {
	baseError
	Name string
	File string
	Path string
}

// NewCacheError creates a new CacheError.
func NewCacheError(message string, cause error) *CacheError {
	return &CacheError{baseError: newBase(message, cause)}
}

// WithEntry adds the cache entry identity to the error context.
func (e *CacheError) WithEntry(name, file string) *CacheError {
	e.Name = name
	e.File = file
	return e
}

// WithSeverity overrides the default SeverityError.
func (e *CacheError) WithSeverity(s Severity) *CacheError {
	e.severity = s
	return e
}

// WithPath adds a filesystem path to the error context.
func (e *CacheError) WithPath(path string) *CacheError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *CacheError) Error() string {
	var parts []string
	if e.Name != "" || e.File != "" {
		parts = append(parts, fmt.Sprintf("entry=%s/%s", e.Name, e.File))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("cache error", parts)
}

// FetchKind classifies a FetchError.
type FetchKind int

const (
	// FetchTransport means no HTTP response was received.
	FetchTransport FetchKind = iota
	// FetchStatus means the upstream answered with an error status.
	FetchStatus
	// FetchDecode means the body could not be parsed.
	FetchDecode
)

// String returns the string representation of the fetch kind.
func (k FetchKind) String() string {
	switch k {
	case FetchTransport:
		return "transport"
	case FetchStatus:
		return "status"
	case FetchDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError represents a failed upstream HTTP call.
//
// Example:
//
//	err := errors.NewFetchError("request failed", errors.ErrUpstreamStatus).
//		WithURL("https://registry.npmjs.org/bcrypto").WithStatus(500, "internal error")
type FetchError struct {
	baseError
	Kind       FetchKind
	URL        string
	StatusCode int
	Upstream   string
}

// NewFetchError creates a new FetchError. The kind is derived from the cause
// sentinel when it is one of the ErrUpstream* values.
func NewFetchError(message string, cause error) *FetchError {
	e := &FetchError{baseError: newBase(message, cause)}
	switch {
	case Is(cause, ErrUpstreamStatus):
		e.Kind = FetchStatus
	case Is(cause, ErrUpstreamDecode):
		e.Kind = FetchDecode
	default:
		e.Kind = FetchTransport
		e.retryable = true
	}
	return e
}

// WithURL adds the request URL to the error context.
func (e *FetchError) WithURL(u string) *FetchError {
	e.URL = u
	return e
}

// WithStatus records the HTTP status and the upstream error message.
// 5xx and 429 responses are marked retryable.
func (e *FetchError) WithStatus(code int, upstream string) *FetchError {
	e.Kind = FetchStatus
	e.StatusCode = code
	e.Upstream = upstream
	e.retryable = code >= 500 || code == 429
	return e
}

// Error returns the formatted error message.
func (e *FetchError) Error() string {
	parts := []string{fmt.Sprintf("kind=%s", e.Kind)}
	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("url=%s", e.URL))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Upstream != "" {
		parts = append(parts, fmt.Sprintf("upstream=%q", e.Upstream))
	}
	return e.format("fetch error", parts)
}

// LockError represents a failure to acquire the working directory lock.
//
// Example:
//
//	err := errors.NewLockError("could not acquire lock", errors.ErrLocked).WithPath(p)
//	fmt.Println(err) // "lock error [path=/w/.hs-tools/.lock]: could not acquire lock: ... (use --force to skip locking)"
type LockError struct {
	baseError
	Path string
}

// NewLockError creates a new LockError.
func NewLockError(message string, cause error) *LockError {
	return &LockError{baseError: newBase(message, cause)}
}

// WithPath adds the lock file path to the error context.
func (e *LockError) WithPath(path string) *LockError {
	e.Path = path
	return e
}

// Error returns the formatted error message including the --force remediation.
func (e *LockError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("lock error", parts) + " (remove the lock file or use --force to skip locking)"
}

// GitError represents errors related to git repository access.
//
// Example:
//
//	err := errors.NewGitError("failed to resolve revision", errors.ErrRevisionNotFound).
//		WithRepository("/path/to/repo").WithRevision("v1.0.0")
type GitError struct {
	baseError
	Repository string
	Revision   string
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{baseError: newBase(message, cause)}
}

// WithRepository adds a repository path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithRevision adds a revision to the error context.
func (e *GitError) WithRevision(rev string) *GitError {
	e.Revision = rev
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}
	if e.Revision != "" {
		parts = append(parts, fmt.Sprintf("rev=%s", e.Revision))
	}
	return e.format("git error", parts)
}

// ConfigError represents invalid configuration.
type ConfigError struct {
	baseError
	Field string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{baseError: newBase(message, cause)}
}

// WithField adds the offending configuration key.
func (e *ConfigError) WithField(field string) *ConfigError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	return e.format("config error", parts)
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var toolErr ToolError
	if As(err, &toolErr) {
		return toolErr.IsRetryable()
	}
	return Is(err, context.DeadlineExceeded)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var toolErr ToolError
	if As(err, &toolErr) {
		return toolErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ToolError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var toolErr ToolError
	if As(err, &toolErr) {
		return toolErr.Severity()
	}
	return SeverityError
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Is(err, ErrInterrupted), Is(err, context.Canceled):
		return ExitInterrupted
	case IsUserFacing(err):
		return ExitToolError
	default:
		return ExitUnexpected
	}
}

// Wrap wraps an error with additional context message.
// Unlike a bare string concatenation this preserves the ToolError chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
