package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Lower values are coarser: a build
// contains modules, a module contains functions, a function contains
// statements.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1
	ScopeModule
	ScopeFunction
	ScopeStatement
)

var scopeNames = [...]string{
	ScopeDriver:    "driver",
	ScopeModule:    "module",
	ScopeFunction:  "function",
	ScopeStatement: "statement",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Attr is one key/value pair attached to a span end. Attrs keep the order
// they were set in.
type Attr struct {
	Key   string
	Value string
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the sink that stores the event
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 at the root
	GID      uint64
	Name     string // "build", "module:arith", "fn:add", or the statement text
	Detail   string
	Elapsed  time.Duration // span ends only
	Attrs    []Attr
}
