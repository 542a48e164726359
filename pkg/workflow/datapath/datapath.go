// Package datapath resolves $.a.b[0] expressions against a workflow's
// execution context.
//
// The grammar is deliberately small: `$` is the context root, `.field`
// descends into an object, `[n]` indexes a sequence. Expressions compile to
// jq programs and evaluate through gojq, so resolution semantics (null
// propagation, index bounds) match jq's.
package datapath

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"
)

// grammar: $ followed by any chain of .field and [n] suffixes.
var pathPattern = regexp.MustCompile(`^\$(\.[A-Za-z_][A-Za-z0-9_]*|\[[0-9]+\])*$`)

// Path is a compiled data-path expression.
type Path struct {
	expr string
	root string
	code *gojq.Code
}

// Compile parses and compiles a data-path expression.
func Compile(expr string) (*Path, error) {
	if !pathPattern.MatchString(expr) {
		return nil, fmt.Errorf("invalid data path %q", expr)
	}

	// "$" alone is identity; otherwise strip the root marker and wrap in
	// try so missing segments resolve to nothing instead of erroring. Each
	// [n] applies only to arrays, so indexing a scalar or an object also
	// resolves to nothing.
	jqExpr := "."
	if expr != "$" {
		rest := strings.TrimPrefix(expr, "$")
		var parts []string
		for _, seg := range regexp.MustCompile(`\.[A-Za-z_][A-Za-z0-9_]*|\[[0-9]+\]`).FindAllString(rest, -1) {
			if seg[0] == '[' {
				seg = `if type == "array" then .` + seg + ` else empty end`
			}
			parts = append(parts, seg)
		}
		jqExpr = "try (" + strings.Join(parts, " | ") + ")"
	}

	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return nil, fmt.Errorf("parse data path %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile data path %q: %w", expr, err)
	}

	return &Path{expr: expr, root: rootOf(expr), code: code}, nil
}

// String returns the original expression.
func (p *Path) String() string {
	return p.expr
}

// Root returns the first member name after $, or "" for the bare root.
func (p *Path) Root() string {
	return p.root
}

// Segment returns the nth member name of the path, or "" when the path is
// shorter or the segment is an index.
func (p *Path) Segment(n int) string {
	fields := strings.Split(p.expr, ".")
	// fields[0] is the "$" (possibly with an index suffix).
	if n+1 >= len(fields) {
		return ""
	}
	seg := fields[n+1]
	if i := strings.IndexByte(seg, '['); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

// Resolve evaluates the path against data. The second return value reports
// whether the path matched: missing segments and null values both resolve to
// not-present, so mappings can omit the field.
func (p *Path) Resolve(data any) (any, bool) {
	normalized, err := normalize(data)
	if err != nil {
		return nil, false
	}

	iter := p.code.Run(normalized)
	v, ok := iter.Next()
	if !ok {
		return nil, false
	}
	if _, isErr := v.(error); isErr {
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	return v, true
}

func rootOf(expr string) string {
	rest := strings.TrimPrefix(expr, "$")
	if !strings.HasPrefix(rest, ".") {
		return ""
	}
	rest = rest[1:]
	end := len(rest)
	if i := strings.IndexAny(rest, ".["); i >= 0 {
		end = i
	}
	return rest[:end]
}

// normalize round-trips data through encoding/json so gojq sees only the
// value shapes it supports.
func normalize(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
