package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lpModelInfo() map[string]any {
	return map[string]any{
		"modelName": "lp",
		"modelType": ModelTypeLinkPrediction,
		"pipeline": map[string]any{
			"featureSteps": []any{
				map[string]any{"name": "HADAMARD", "config": map[string]any{"nodeProperties": []any{"embedding"}}},
				map[string]any{"name": "COSINE", "config": map[string]any{"nodeProperties": []any{"age"}}},
			},
		},
	}
}

func modelListTable(t *testing.T, name string, info map[string]any) *Table {
	return mustTable(t,
		[]string{"modelInfo", "trainConfig", "graphSchema", "loaded", "stored", "creationTime", "shared"},
		[]any{info, map[string]any{"modelName": name}, map[string]any{"nodes": map[string]any{}}, true, false, "2024-01-01", false})
}

func TestModel_CatalogByVersion(t *testing.T) {
	gds, f := newTestClient(t, "2.4.0")
	before := len(f.Calls())

	_, err := gds.Model().List(context.Background(), nil)
	assert.True(t, IsIncompatibleServerVersion(err))
	_, err = gds.Model().Store(context.Background(), ModelName("m"), false)
	assert.True(t, IsIncompatibleServerVersion(err))
	assert.Len(t, f.Calls(), before)

	_, err = gds.Beta().Model().List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "CALL gds.beta.model.list()", f.Calls()[len(f.Calls())-1].Query)
}

func TestModel_Get(t *testing.T) {
	gds, f := newTestClient(t, "2.4.0")
	ctx := context.Background()
	f.canned["gds.beta.model.exists"] = mustTable(t, []string{"modelName", "modelType", "exists"},
		[]any{"lp", ModelTypeLinkPrediction, true})

	m, err := gds.Beta().Model().Get(ctx, "lp")
	require.NoError(t, err)
	assert.Equal(t, "lp", m.Name())
	assert.Equal(t, ModelTypeLinkPrediction, m.Type())
	assert.Equal(t, "LinkPrediction(lp)", m.String())

	f.canned["gds.beta.model.exists"] = mustTable(t, []string{"modelName", "modelType", "exists"},
		[]any{"nope", nil, false})
	m, err = gds.Beta().Model().Get(ctx, "nope")
	assert.Nil(t, m)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "no model named 'nope' exists")
}

func TestModel_LinkFeatures(t *testing.T) {
	gds, f := newTestClient(t, "2.4.0")
	ctx := context.Background()
	f.canned["gds.beta.model.list"] = modelListTable(t, "lp", lpModelInfo())

	m := newModel("lp", ModelTypeLinkPrediction, gds.s)
	lp, err := m.LinkPrediction()
	require.NoError(t, err)

	features, err := lp.LinkFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "HADAMARD", features[0].Name)
	assert.Equal(t, []any{"embedding"}, features[0].Config["nodeProperties"])
	assert.Equal(t, "COSINE", features[1].Name)

	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.beta.model.list($model_name)", last.Query)
	assert.Equal(t, "lp", last.Params["model_name"])

	loaded, err := m.Loaded(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	stored, err := m.Stored(ctx)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestModel_TypeConversion(t *testing.T) {
	gds, _ := newTestClient(t, "2.5.0")
	m := newModel("nc", ModelTypeNodeClassification, gds.s)

	_, err := m.LinkPrediction()
	assert.ErrorIs(t, err, ErrValidation)
	_, err = m.NodeRegression()
	assert.ErrorIs(t, err, ErrValidation)
	_, err = m.NodeClassification()
	assert.NoError(t, err)
}

func TestModel_NodeClassification(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()
	info := map[string]any{
		"classes": []any{int64(0), int64(1)},
		"pipeline": map[string]any{
			"featureProperties": []any{"age", map[string]any{"feature": "embedding"}},
		},
	}
	f.canned["gds.model.list"] = modelListTable(t, "nc", info)

	nc, err := newModel("nc", ModelTypeNodeClassification, gds.s).NodeClassification()
	require.NoError(t, err)

	classes, err := nc.Classes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), int64(1)}, classes)

	props, err := nc.FeatureProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "embedding"}, props)
	assert.Equal(t, "CALL gds.model.list($model_name)", f.Calls()[len(f.Calls())-1].Query)
}

func TestModel_InfoMissing(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	f.canned["gds.model.list"] = mustTable(t, []string{"modelInfo"})

	_, err := newModel("gone", ModelTypeNodeRegression, gds.s).ModelInfo(context.Background())
	assert.True(t, IsNotFound(err))
}

func TestModel_MissingPipeline(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	f.canned["gds.model.list"] = modelListTable(t, "nr", map[string]any{})

	nr, err := newModel("nr", ModelTypeNodeRegression, gds.s).NodeRegression()
	require.NoError(t, err)
	_, err = nr.FeatureProperties(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResultShape)
}

func TestModel_StoreLoadDeletePublish(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()
	f.canned["gds.model.store"] = mustTable(t, []string{"modelName", "storeMillis"}, []any{"m", int64(5)})
	f.canned["gds.model.load"] = mustTable(t, []string{"modelName", "loadMillis"}, []any{"m", int64(2)})
	f.canned["gds.model.delete"] = mustTable(t, []string{"modelName", "deleteMillis"}, []any{"m", int64(1)})
	f.canned["gds.model.publish"] = mustTable(t, []string{"modelInfo", "shared"},
		[]any{map[string]any{"modelName": "m_public", "modelType": ModelTypeNodeRegression}, true})

	_, err := gds.Model().Store(ctx, ModelName("m"), true)
	require.NoError(t, err)
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.model.store($model_name, $fail_flag)", last.Query)
	assert.Equal(t, true, last.Params["fail_flag"])

	_, err = gds.Model().Load(ctx, "m")
	require.NoError(t, err)
	_, err = gds.Model().Delete(ctx, ModelName("m"))
	require.NoError(t, err)

	published, err := gds.Model().Publish(ctx, ModelName("m"))
	require.NoError(t, err)
	assert.Equal(t, "m_public", published.Name())
	assert.Equal(t, ModelTypeNodeRegression, published.Type())
}

func TestModel_Drop(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	f.canned["gds.model.drop"] = mustTable(t, []string{"modelInfo"})

	row, err := newModel("m", ModelTypeNodeRegression, gds.s).Drop(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, row)
	last := f.Calls()[len(f.Calls())-1]
	assert.Equal(t, "CALL gds.model.drop($model_name, $fail_if_missing)", last.Query)
}

func TestModel_NilHandle(t *testing.T) {
	gds, f := newTestClient(t, "2.5.0")
	ctx := context.Background()
	before := len(f.Calls())
	var missing *Model

	assert.Empty(t, missing.Name())

	_, err := gds.Model().List(ctx, missing)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Model().Drop(ctx, missing, true)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Model().Store(ctx, ModelName(""), false)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Model().Delete(ctx, missing)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = gds.Model().Publish(ctx, missing)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Len(t, f.Calls(), before)
}

func TestModelIdentity(t *testing.T) {
	name, modelType := modelIdentity(Row{"modelName": "a", "modelType": "T"})
	assert.Equal(t, "a", name)
	assert.Equal(t, "T", modelType)

	name, modelType = modelIdentity(Row{"modelInfo": map[string]any{"modelName": "b", "modelType": "U"}})
	assert.Equal(t, "b", name)
	assert.Equal(t, "U", modelType)
}
