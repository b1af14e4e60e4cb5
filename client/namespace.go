package client

import (
	"context"
	"fmt"
	"strings"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/query"
)

// Namespace is one level of the procedure tree. Every typed accessor in this
// package also satisfies Namespace, so a path can be walked segment by
// segment when it is only known at run time.
type Namespace interface {
	// Path returns the dot-joined procedure path of this node.
	Path() string
	// Child resolves one declared segment below this node. Undeclared
	// segments fail with an UnknownNamespace error.
	Child(segment string) (Namespace, error)
	// Invoke runs the node as a procedure with positional arguments and an
	// optional configuration map. Intermediate nodes fail with an
	// UncallableNamespace error.
	Invoke(ctx context.Context, args []any, config map[string]any) (*Table, error)
}

// node carries the path and session of a namespace level. It is a value;
// extending it never changes the receiver.
type node struct {
	path string
	s    *session
}

// Path returns the dot-joined procedure path.
func (n node) Path() string {
	return n.path
}

func (n node) extend(segment string) node {
	return node{path: n.path + "." + segment, s: n.s}
}

func (n node) unknown(segment string) error {
	return gdserrors.NewUnknownNamespace(n.path, segment)
}

func (n node) uncallable() error {
	return gdserrors.NewUncallableNamespace(n.path,
		fmt.Sprintf("%s is a namespace, not a procedure", n.path))
}

// procedure builds n.path.segment, the full name of a procedure below n.
func (n node) procedure(segment string) string {
	return n.path + "." + segment
}

// invoke runs n.path as a procedure with positional parameters.
func (n node) invoke(ctx context.Context, args []any, config map[string]any) (*Table, error) {
	c, err := query.BuildPositional(n.path, normalizeArgs(args), config)
	if err != nil {
		return nil, err
	}
	return n.s.run(ctx, c)
}

// Procedure is a terminal node with no children of its own.
type Procedure struct {
	node
	method string
}

func (n node) terminal(segment string) Procedure {
	return Procedure{node: n.extend(segment)}
}

func (n node) gatedTerminal(segment, method string) Procedure {
	return Procedure{node: n.extend(segment), method: method}
}

// Child always fails: procedures have no sub-namespaces.
func (p Procedure) Child(segment string) (Namespace, error) {
	return nil, p.unknown(segment)
}

// Invoke runs the procedure.
func (p Procedure) Invoke(ctx context.Context, args []any, config map[string]any) (*Table, error) {
	if p.method != "" {
		if err := p.s.require(p.method); err != nil {
			return nil, err
		}
	}
	return p.invoke(ctx, args, config)
}

// clientOnly names an operation implemented by the client with no server
// procedure behind it, such as gds.graph.get.
type clientOnly struct {
	node
	method string
}

func (c clientOnly) Child(segment string) (Namespace, error) {
	return nil, c.unknown(segment)
}

func (c clientOnly) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, gdserrors.NewUncallableNamespace(c.path,
		fmt.Sprintf("%s is implemented by the client, use %s", c.path, c.method))
}

// Resolve walks path from root, one Child call per segment. The first segment
// must be root's own path ("gds").
func Resolve(root Namespace, path string) (Namespace, error) {
	segments := strings.Split(path, ".")
	if segments[0] != root.Path() {
		return nil, gdserrors.NewUnknownNamespace("", segments[0])
	}
	ns := root
	for _, seg := range segments[1:] {
		next, err := ns.Child(seg)
		if err != nil {
			return nil, err
		}
		ns = next
	}
	return ns, nil
}

// normalizeArgs replaces graph and model references with their names so the
// driver only sees plain values.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if ref, ok := a.(interface{ Name() string }); ok {
			out[i] = ref.Name()
			continue
		}
		out[i] = a
	}
	return out
}
