package client

import (
	"context"
	"encoding/json"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/query"
)

// UploadProcedure hands a projected graph and its training configuration to
// the external GNN trainer.
const UploadProcedure = "gds.upload.graph"

// GNNEndpoints is gds.gnn. Its operations have no server procedure of their
// own; they upload the graph through UploadProcedure.
type GNNEndpoints struct {
	node
}

// GNN returns the gds.gnn tier.
func (g *GraphDataScience) GNN() GNNEndpoints {
	return GNNEndpoints{node: g.extend("gnn")}
}

// NodeClassification returns gds.gnn.nc.
func (e GNNEndpoints) NodeClassification() GNNNodeClassificationRunner {
	return GNNNodeClassificationRunner{node: e.extend("nc")}
}

// Child resolves nc.
func (e GNNEndpoints) Child(segment string) (Namespace, error) {
	if segment == "nc" {
		return e.NodeClassification(), nil
	}
	return nil, e.unknown(segment)
}

// Invoke fails: gds.gnn is a namespace.
func (e GNNEndpoints) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, e.uncallable()
}

// GNNTrainOptions describes one node classification training run.
type GNNTrainOptions struct {
	FeatureProperties []string
	TargetProperty    string
	// TargetNodeLabel restricts training to one label. Empty means all.
	TargetNodeLabel string
	// NodeLabels selects the nodes uploaded. Empty leaves the choice to the
	// server.
	NodeLabels []string
}

// GNNNodeClassificationRunner is gds.gnn.nc.
type GNNNodeClassificationRunner struct {
	node
}

// Train uploads g with a training configuration for modelName. The feature
// and target properties are uploaded as node properties.
func (r GNNNodeClassificationRunner) Train(ctx context.Context, g GraphRef, modelName string, opts GNNTrainOptions) (Row, error) {
	operation := r.procedure("train")
	name, err := graphName(operation, g)
	if err != nil {
		return nil, err
	}
	switch {
	case modelName == "":
		return nil, gdserrors.NewValidationError(operation, "model name cannot be empty")
	case len(opts.FeatureProperties) == 0:
		return nil, gdserrors.NewValidationError(operation, "at least one feature property is required")
	case opts.TargetProperty == "":
		return nil, gdserrors.NewValidationError(operation, "target property cannot be empty")
	}

	training := map[string]any{
		"featureProperties": opts.FeatureProperties,
		"targetProperty":    opts.TargetProperty,
	}
	if opts.TargetNodeLabel != "" {
		training["targetNodeLabel"] = opts.TargetNodeLabel
	}
	encoded, err := json.Marshal(training)
	if err != nil {
		return nil, gdserrors.WrapValidationError(err, operation, "failed to encode training config")
	}

	nodeProperties := make([]string, 0, len(opts.FeatureProperties)+1)
	nodeProperties = append(nodeProperties, opts.FeatureProperties...)
	nodeProperties = append(nodeProperties, opts.TargetProperty)

	config := map[string]any{
		"mlTrainingConfig": string(encoded),
		"modelName":        modelName,
		"nodeProperties":   nodeProperties,
	}
	if len(opts.NodeLabels) > 0 {
		config["nodeLabels"] = opts.NodeLabels
	}

	return r.s.callRow(ctx, shapeOptionalScalar, UploadProcedure, []query.Arg{
		query.Param("graph_name", name),
	}, config)
}

// Child resolves train, which is implemented by the client.
func (r GNNNodeClassificationRunner) Child(segment string) (Namespace, error) {
	if segment == "train" {
		return clientOnly{node: r.extend(segment), method: "GNNNodeClassificationRunner.Train"}, nil
	}
	return nil, r.unknown(segment)
}

// Invoke fails: gds.gnn.nc is a namespace.
func (r GNNNodeClassificationRunner) Invoke(context.Context, []any, map[string]any) (*Table, error) {
	return nil, r.uncallable()
}
