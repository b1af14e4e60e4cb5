package client

import (
	"context"
	"fmt"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/version"
)

// Model types reported by the model catalog.
const (
	ModelTypeLinkPrediction     = "LinkPrediction"
	ModelTypeNodeClassification = "NodeClassification"
	ModelTypeNodeRegression     = "NodeRegression"
)

// ModelRef identifies a model in the model catalog.
type ModelRef interface {
	Name() string
}

// ModelName refers to a model by name without checking that it exists.
type ModelName string

// Name returns the model name.
func (n ModelName) Name() string {
	return string(n)
}

// Model is a handle to a model in the model catalog. Like Graph it caches
// nothing: every accessor re-reads the catalog.
type Model struct {
	name      string
	modelType string
	s         *session
}

func newModel(name, modelType string, s *session) *Model {
	return &Model{name: name, modelType: modelType, s: s}
}

// Name returns the model name.
func (m *Model) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// modelName returns the name of m, failing for a nil or unnamed reference.
func modelName(operation string, m ModelRef) (string, error) {
	if m == nil || m.Name() == "" {
		return "", gdserrors.NewValidationError(operation, "model name cannot be empty")
	}
	return m.Name(), nil
}

// Type returns the model type recorded when the handle was created.
func (m *Model) Type() string {
	return m.modelType
}

func (m *Model) String() string {
	return fmt.Sprintf("%s(%s)", m.modelType, m.name)
}

// catalog picks gds.model on servers that have it and gds.beta.model before.
func (m *Model) catalog() modelCatalog {
	if m.s.version.AtLeast(version.New(2, 5, 0)) {
		return modelCatalog{node: node{path: "gds.model", s: m.s}, method: MethodModelCatalog}
	}
	return modelCatalog{node: node{path: "gds.beta.model", s: m.s}}
}

// Info returns the catalog row of this model.
func (m *Model) Info(ctx context.Context) (Row, error) {
	c := m.catalog()
	t, err := c.List(ctx, m)
	if err != nil {
		return nil, err
	}
	procedure := c.procedure("list")
	row, err := shapeRow(procedure, shapeOptionalScalar, t)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, gdserrors.NewNotFoundError(procedure,
			fmt.Sprintf("no model named '%s' exists", m.name))
	}
	return row, nil
}

// Exists reports whether the model is still in the catalog.
func (m *Model) Exists(ctx context.Context) (bool, error) {
	row, err := m.catalog().Exists(ctx, m.name)
	if err != nil {
		return false, err
	}
	exists, _ := row.GetBool("exists")
	return exists, nil
}

// Drop removes the model from the catalog.
func (m *Model) Drop(ctx context.Context, failIfMissing bool) (Row, error) {
	return m.catalog().Drop(ctx, m, failIfMissing)
}

func (m *Model) field(ctx context.Context, key string) (any, error) {
	row, err := m.Info(ctx)
	if err != nil {
		return nil, err
	}
	return requireColumn(m.catalog().procedure("list"), row, key)
}

func (m *Model) boolField(ctx context.Context, key string) (bool, error) {
	v, err := m.field(ctx, key)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (m *Model) mapField(ctx context.Context, key string) (map[string]any, error) {
	v, err := m.field(ctx, key)
	if err != nil {
		return nil, err
	}
	out, ok := v.(map[string]any)
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(m.catalog().procedure("list"),
			fmt.Sprintf("column %q is %T, expected a map", key, v))
	}
	return out, nil
}

// Loaded reports whether the model is in memory.
func (m *Model) Loaded(ctx context.Context) (bool, error) {
	return m.boolField(ctx, "loaded")
}

// Stored reports whether the model is persisted to disk.
func (m *Model) Stored(ctx context.Context) (bool, error) {
	return m.boolField(ctx, "stored")
}

// CreationTime returns the creation timestamp as reported by the driver.
func (m *Model) CreationTime(ctx context.Context) (any, error) {
	return m.field(ctx, "creationTime")
}

// TrainConfig returns the configuration the model was trained with.
func (m *Model) TrainConfig(ctx context.Context) (map[string]any, error) {
	return m.mapField(ctx, "trainConfig")
}

// GraphSchema returns the schema of the graph the model was trained on.
func (m *Model) GraphSchema(ctx context.Context) (map[string]any, error) {
	return m.mapField(ctx, "graphSchema")
}

// ModelInfo returns the type specific modelInfo map.
func (m *Model) ModelInfo(ctx context.Context) (map[string]any, error) {
	return m.mapField(ctx, "modelInfo")
}

func (m *Model) pipelineField(ctx context.Context, key string) (any, error) {
	info, err := m.ModelInfo(ctx)
	if err != nil {
		return nil, err
	}
	procedure := m.catalog().procedure("list")
	pipeline, ok := info["pipeline"].(map[string]any)
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(procedure, "modelInfo has no pipeline")
	}
	v, ok := pipeline[key]
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(procedure,
			fmt.Sprintf("modelInfo.pipeline has no %q", key))
	}
	return v, nil
}

func (m *Model) as(modelType string) error {
	if m.modelType != modelType {
		return gdserrors.NewValidationError("client.Model",
			fmt.Sprintf("model %q has type %q, not %q", m.name, m.modelType, modelType))
	}
	return nil
}

// LinkPrediction returns m as a link prediction model.
func (m *Model) LinkPrediction() (*LPModel, error) {
	if err := m.as(ModelTypeLinkPrediction); err != nil {
		return nil, err
	}
	return &LPModel{Model: m}, nil
}

// NodeClassification returns m as a node classification model.
func (m *Model) NodeClassification() (*NCModel, error) {
	if err := m.as(ModelTypeNodeClassification); err != nil {
		return nil, err
	}
	return &NCModel{Model: m}, nil
}

// NodeRegression returns m as a node regression model.
func (m *Model) NodeRegression() (*NRModel, error) {
	if err := m.as(ModelTypeNodeRegression); err != nil {
		return nil, err
	}
	return &NRModel{Model: m}, nil
}

// LinkFeature is one link feature step of a link prediction pipeline.
type LinkFeature struct {
	Name   string
	Config map[string]any
}

func (f LinkFeature) String() string {
	return fmt.Sprintf("(%s, %v)", f.Name, f.Config)
}

// LPModel is a link prediction pipeline model.
type LPModel struct {
	*Model
}

// LinkFeatures returns the link feature steps of the trained pipeline.
func (m *LPModel) LinkFeatures(ctx context.Context) ([]LinkFeature, error) {
	raw, err := m.pipelineField(ctx, "featureSteps")
	if err != nil {
		return nil, err
	}
	steps, ok := toSlice(raw)
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(m.catalog().procedure("list"),
			"modelInfo.pipeline.featureSteps is not a list")
	}
	out := make([]LinkFeature, 0, len(steps))
	for _, s := range steps {
		step, ok := s.(map[string]any)
		if !ok {
			return nil, gdserrors.NewInvalidResultShape(m.catalog().procedure("list"),
				fmt.Sprintf("feature step is %T, expected a map", s))
		}
		name, _ := step["name"].(string)
		config, _ := step["config"].(map[string]any)
		out = append(out, LinkFeature{Name: name, Config: config})
	}
	return out, nil
}

// NCModel is a node classification pipeline model.
type NCModel struct {
	*Model
}

// Classes returns the class ids the model predicts.
func (m *NCModel) Classes(ctx context.Context) ([]any, error) {
	info, err := m.ModelInfo(ctx)
	if err != nil {
		return nil, err
	}
	classes, ok := toSlice(info["classes"])
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(m.catalog().procedure("list"),
			"modelInfo has no classes list")
	}
	return classes, nil
}

// FeatureProperties returns the node properties the pipeline trains on.
func (m *NCModel) FeatureProperties(ctx context.Context) ([]string, error) {
	return featureProperties(ctx, m.Model)
}

// NRModel is a node regression pipeline model.
type NRModel struct {
	*Model
}

// FeatureProperties returns the node properties the pipeline trains on.
func (m *NRModel) FeatureProperties(ctx context.Context) ([]string, error) {
	return featureProperties(ctx, m.Model)
}

// featureProperties accepts both plain names and {"feature": name} steps.
func featureProperties(ctx context.Context, m *Model) ([]string, error) {
	raw, err := m.pipelineField(ctx, "featureProperties")
	if err != nil {
		return nil, err
	}
	items, ok := toSlice(raw)
	if !ok {
		return nil, gdserrors.NewInvalidResultShape(m.catalog().procedure("list"),
			"modelInfo.pipeline.featureProperties is not a list")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if name, ok := v["feature"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out, nil
}
