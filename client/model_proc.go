package client

import (
	"context"
	"fmt"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/query"
)

// modelCatalog holds the operations shared by gds.model and gds.beta.model.
// method is the compatibility declaration checked before every call; the
// beta catalog has none.
type modelCatalog struct {
	node
	method string
}

func (c modelCatalog) guard() error {
	if c.method == "" {
		return nil
	}
	return c.s.require(c.method)
}

// List returns the catalog entry of m, or of every model when m is nil.
func (c modelCatalog) List(ctx context.Context, m ModelRef) (*Table, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	procedure := c.procedure("list")
	var args []query.Arg
	if m != nil {
		name, err := modelName(procedure, m)
		if err != nil {
			return nil, err
		}
		args = append(args, query.Param("model_name", name))
	}
	return c.s.call(ctx, procedure, args, nil)
}

// Exists returns the single row {modelName, modelType, exists} for name.
func (c modelCatalog) Exists(ctx context.Context, name string) (Row, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	return c.s.callRow(ctx, shapeScalar, c.procedure("exists"),
		[]query.Arg{query.Param("model_name", name)}, nil)
}

// Drop removes m from the catalog. An absent model without failIfMissing
// yields a nil row.
func (c modelCatalog) Drop(ctx context.Context, m ModelRef, failIfMissing bool) (Row, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	procedure := c.procedure("drop")
	name, err := modelName(procedure, m)
	if err != nil {
		return nil, err
	}
	return c.s.callRow(ctx, shapeOptionalScalar, procedure, []query.Arg{
		query.Param("model_name", name),
		query.Param("fail_if_missing", failIfMissing),
	}, nil)
}

// Get returns a handle to an existing model, failing with NotFound when the
// catalog has no model of that name.
func (c modelCatalog) Get(ctx context.Context, name string) (*Model, error) {
	row, err := c.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists, _ := row.GetBool("exists"); !exists {
		return nil, gdserrors.NewNotFoundError(c.procedure("get"),
			fmt.Sprintf("no model named '%s' exists", name)).
			WithContext("model", name)
	}
	modelType, _ := row.GetString("modelType")
	return newModel(name, modelType, c.s), nil
}

func (c modelCatalog) child(segment string, extra ...string) (Namespace, error) {
	switch segment {
	case "list", "exists", "drop":
		return c.gatedTerminal(segment, c.method), nil
	case "get":
		return clientOnly{node: c.extend(segment), method: "Get"}, nil
	}
	for _, e := range extra {
		if segment == e {
			return c.gatedTerminal(segment, c.method), nil
		}
	}
	return nil, c.unknown(segment)
}

// ModelProcRunner is the gds.model catalog. Every operation requires a
// server of version 2.5.0 or later.
type ModelProcRunner struct {
	modelCatalog
}

// Store persists a model to disk.
func (r ModelProcRunner) Store(ctx context.Context, m ModelRef, failIfUnsupportedType bool) (Row, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	procedure := r.procedure("store")
	name, err := modelName(procedure, m)
	if err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, procedure, []query.Arg{
		query.Param("model_name", name),
		query.Param("fail_flag", failIfUnsupportedType),
	}, nil)
}

// Load loads a stored model into memory.
func (r ModelProcRunner) Load(ctx context.Context, name string) (Row, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, r.procedure("load"),
		[]query.Arg{query.Param("model_name", name)}, nil)
}

// Delete removes a stored model from disk.
func (r ModelProcRunner) Delete(ctx context.Context, m ModelRef) (Row, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	procedure := r.procedure("delete")
	name, err := modelName(procedure, m)
	if err != nil {
		return nil, err
	}
	return r.s.callRow(ctx, shapeScalar, procedure,
		[]query.Arg{query.Param("model_name", name)}, nil)
}

// Publish makes a model visible to every user and returns a handle to the
// published copy.
func (r ModelProcRunner) Publish(ctx context.Context, m ModelRef) (*Model, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	procedure := r.procedure("publish")
	published, err := modelName(procedure, m)
	if err != nil {
		return nil, err
	}
	row, err := r.s.callRow(ctx, shapeScalar, procedure,
		[]query.Arg{query.Param("model_name", published)}, nil)
	if err != nil {
		return nil, err
	}
	name, modelType := modelIdentity(row)
	if name == "" {
		return nil, gdserrors.NewInvalidResultShape(procedure, "result has no model name")
	}
	return newModel(name, modelType, r.s), nil
}

// Child resolves the procedures of gds.model.
func (r ModelProcRunner) Child(segment string) (Namespace, error) {
	return r.child(segment, "store", "load", "delete", "publish")
}

// Invoke fails: gds.model is a namespace.
func (r ModelProcRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}

// BetaModelProcRunner is the gds.beta.model catalog.
type BetaModelProcRunner struct {
	modelCatalog
}

// Child resolves the procedures of gds.beta.model.
func (r BetaModelProcRunner) Child(segment string) (Namespace, error) {
	return r.child(segment)
}

// Invoke fails: gds.beta.model is a namespace.
func (r BetaModelProcRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}

// modelIdentity reads the model name and type from either catalog layout:
// top-level columns on 2.5.0 and later, fields of modelInfo before.
func modelIdentity(row Row) (name, modelType string) {
	name, _ = row.GetString("modelName")
	modelType, _ = row.GetString("modelType")
	if info, ok := row.GetMap("modelInfo"); ok {
		if name == "" {
			name, _ = info["modelName"].(string)
		}
		if modelType == "" {
			modelType, _ = info["modelType"].(string)
		}
	}
	return name, modelType
}
