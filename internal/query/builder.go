// Package query builds the Cypher text and parameter map for a procedure call.
// Caller-supplied values only ever travel in the parameter map; the query text
// is assembled from validated identifiers.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// ConfigParam is the placeholder that carries the free-form configuration map.
const ConfigParam = "config"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Arg is one named positional argument of a procedure call.
type Arg struct {
	Name  string
	Value any
}

// Param is shorthand for Arg{Name: name, Value: value}.
func Param(name string, value any) Arg {
	return Arg{Name: name, Value: value}
}

// Call is a fully built procedure invocation. It is never mutated after Build.
type Call struct {
	Procedure string
	Query     string
	Params    map[string]any
}

// Build assembles `CALL <procedure>($a, $b, ..., $config)`. A nil config omits
// the $config placeholder; a non-nil map, even empty, is passed as one parameter.
func Build(procedure string, args []Arg, config map[string]any) (Call, error) {
	if err := ValidateProcedure(procedure); err != nil {
		return Call{}, err
	}

	placeholders := make([]string, 0, len(args)+1)
	params := make(map[string]any, len(args)+1)
	for _, a := range args {
		if err := validateParam(procedure, a.Name); err != nil {
			return Call{}, err
		}
		if a.Name == ConfigParam && config != nil {
			return Call{}, gdserrors.NewValidationError(procedure,
				"argument name \"config\" is reserved for the configuration map")
		}
		if _, dup := params[a.Name]; dup {
			return Call{}, gdserrors.NewValidationError(procedure,
				fmt.Sprintf("duplicate argument %q", a.Name))
		}
		params[a.Name] = a.Value
		placeholders = append(placeholders, "$"+a.Name)
	}
	if config != nil {
		params[ConfigParam] = config
		placeholders = append(placeholders, "$"+ConfigParam)
	}

	return Call{
		Procedure: procedure,
		Query:     fmt.Sprintf("CALL %s(%s)", procedure, strings.Join(placeholders, ", ")),
		Params:    params,
	}, nil
}

// BuildPositional names the arguments p0, p1, ... in order.
func BuildPositional(procedure string, values []any, config map[string]any) (Call, error) {
	args := make([]Arg, len(values))
	for i, v := range values {
		args[i] = Param(fmt.Sprintf("p%d", i), v)
	}
	return Build(procedure, args, config)
}

// Function builds `RETURN <function>($a, ...) AS <alias>` for catalog functions
// such as gds.version().
func Function(function, alias string, args []Arg) (Call, error) {
	if err := validateParam(function, alias); err != nil {
		return Call{}, err
	}
	c, err := Build(function, args, nil)
	if err != nil {
		return Call{}, err
	}
	c.Query = "RETURN " + strings.TrimPrefix(c.Query, "CALL ") + " AS " + alias
	return c, nil
}

// Yield returns a copy of c that only yields the given columns.
func (c Call) Yield(columns ...string) (Call, error) {
	if len(columns) == 0 {
		return c, nil
	}
	for _, col := range columns {
		if err := validateParam(c.Procedure, col); err != nil {
			return Call{}, err
		}
	}
	c.Query = c.Query + " YIELD " + strings.Join(columns, ", ")
	return c, nil
}

// ParamNames lists the bound parameter names in sorted order. Values are left
// out so that errors and logs never echo caller data.
func (c Call) ParamNames() []string {
	names := make([]string, 0, len(c.Params))
	for k := range c.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidateProcedure checks that every dot-separated segment is an identifier.
func ValidateProcedure(procedure string) error {
	if procedure == "" {
		return gdserrors.NewValidationError("query.Build", "empty procedure name")
	}
	for _, seg := range strings.Split(procedure, ".") {
		if !identPattern.MatchString(seg) {
			return gdserrors.NewValidationError("query.Build",
				fmt.Sprintf("invalid procedure segment %q in %q", seg, procedure))
		}
	}
	return nil
}

func validateParam(procedure, name string) error {
	if !identPattern.MatchString(name) {
		return gdserrors.NewValidationError(procedure, fmt.Sprintf("invalid parameter name %q", name))
	}
	return nil
}
