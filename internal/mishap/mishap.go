// Package mishap implements the structured failure value carried by the
// core (§7): a message, a severity, and an ordered list of culprits
// explaining what was being attempted when things went wrong.
package mishap

import (
	"fmt"
	"strings"
)

// Severity classifies where in the pipeline a Mishap originated.
type Severity int

const (
	ExecutionTime Severity = iota
	SystemErrorSeverity
	CompileTime
)

func (s Severity) String() string {
	switch s {
	case ExecutionTime:
		return "execution"
	case CompileTime:
		return "compile"
	default:
		return "system"
	}
}

// Kind identifies the category of failure so callers can branch on it with
// errors.As without string-matching the message.
type Kind string

const (
	HeapOverflow   Kind = "HeapOverflow"
	NotSmall       Kind = "NotSmall"
	Overflow       Kind = "Overflow"
	NotCallable    Kind = "NotCallable"
	InvalidKey     Kind = "InvalidKey"
	DuplicateLocal Kind = "DuplicateLocal"
	NotAProcedure  Kind = "NotAProcedure"

	// UnknownLocal is raised by Planter.PUSH_LOCAL/POP_LOCAL/CALL_LOCAL
	// when the named local was never declared in the current scope. The
	// reference implementation raises an equivalent failure but the
	// published Kind table (§7) never named it; this module adds it
	// rather than silently reusing an unrelated Kind (see DESIGN.md).
	UnknownLocal Kind = "UnknownLocal"
)

var defaultSeverity = map[Kind]Severity{
	HeapOverflow:   ExecutionTime,
	NotSmall:       ExecutionTime,
	Overflow:       ExecutionTime,
	NotCallable:    ExecutionTime,
	InvalidKey:     SystemErrorSeverity,
	DuplicateLocal: CompileTime,
	NotAProcedure:  ExecutionTime,
	UnknownLocal:   CompileTime,
}

// Culprit is one (reason, value) pair attached to a Mishap, in the order
// they were added.
type Culprit struct {
	Reason string
	Value  string
}

// Mishap is the core's error type. The zero value is not usable; build one
// with New and chain Culprit calls.
type Mishap struct {
	Kind     Kind
	Message  string
	Severity Severity
	Culprits []Culprit
	Cause    error
}

// New creates a Mishap of the given kind, defaulting its severity from the
// kind's usual cause.
func New(kind Kind, message string) *Mishap {
	return &Mishap{Kind: kind, Message: message, Severity: defaultSeverity[kind]}
}

// Culprit records a further (reason, value) pair and returns the receiver
// so calls chain fluently, mirroring the original's culprit-chaining
// exception-builder style.
func (m *Mishap) Culprit(reason string, value any) *Mishap {
	m.Culprits = append(m.Culprits, Culprit{Reason: reason, Value: fmt.Sprint(value)})
	return m
}

// CausedBy records the underlying error that triggered this Mishap.
func (m *Mishap) CausedBy(err error) *Mishap {
	m.Cause = err
	return m
}

func (m *Mishap) Error() string {
	var b strings.Builder
	b.WriteString(m.Message)
	for _, c := range m.Culprits {
		fmt.Fprintf(&b, " [%s: %s]", c.Reason, c.Value)
	}
	if m.Cause != nil {
		fmt.Fprintf(&b, ": %s", m.Cause)
	}
	return b.String()
}

func (m *Mishap) Unwrap() error {
	return m.Cause
}

// Is makes errors.Is(err, mishap.New(Kind, "")) match any Mishap of the
// same Kind, regardless of message or culprits.
func (m *Mishap) Is(target error) bool {
	t, ok := target.(*Mishap)
	if !ok {
		return false
	}
	return t.Kind == m.Kind
}

func (m *Mishap) IsCompileTimeError() bool  { return m.Severity == CompileTime }
func (m *Mishap) IsExecutionTimeError() bool { return m.Severity == ExecutionTime }
func (m *Mishap) IsSystemError() bool       { return m.Severity == SystemErrorSeverity }
