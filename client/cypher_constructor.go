package client

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
	"github.com/23skdu/gdsclient/internal/metrics"
	"github.com/23skdu/gdsclient/internal/version"
)

// cypherGraphConstructor builds a graph with one Cypher aggregation query.
// The server either projects the whole graph or fails, so nothing has to be
// cleaned up on error.
type cypherGraphConstructor struct {
	runner      QueryRunner
	graphName   string
	concurrency int
}

type constructNode struct {
	labels     []string
	properties map[string]any
}

// Run validates the tables, flattens them into one row per relationship plus
// one row per isolated node and sends them as a single parameter.
func (c *cypherGraphConstructor) Run(ctx context.Context, nodes, relationships []arrow.Record) error {
	if err := validateConstructTables(nodes, relationships); err != nil {
		return err
	}

	byID, order, err := collectNodes(nodes)
	if err != nil {
		return err
	}
	rows, err := aggregationRows(byID, order, relationships)
	if err != nil {
		return err
	}

	layout, err := c.aggregationLayout(ctx)
	if err != nil {
		return err
	}
	if layout.dataConfig {
		rows = dataConfigRows(rows)
	}

	query := fmt.Sprintf("UNWIND $rows AS row\nRETURN %s($graph_name, row.source, row.target, %s, $config) AS graph",
		layout.function, layout.arguments)
	params := map[string]any{
		"rows":       rows,
		"graph_name": c.graphName,
		"config":     map[string]any{"readConcurrency": c.concurrency},
	}
	if _, err := c.runner.RunQuery(ctx, query, params); err != nil {
		return err
	}

	metrics.ConstructBatchesTotal.WithLabelValues("cypher").Inc()
	metrics.ConstructRowsTotal.WithLabelValues("cypher").Add(float64(len(rows)))
	return nil
}

// aggregation describes the projection function of a server version and
// how it expects the per-row node and relationship configuration.
type aggregation struct {
	function   string
	arguments  string
	dataConfig bool
}

var (
	// alphaAggregation takes nodesConfig and relationshipConfig as two maps.
	alphaAggregation = aggregation{
		function:  "gds.alpha.graph.project",
		arguments: "row.nodesConfig, row.relationshipConfig",
	}
	// stableAggregation, from 2.3.0, takes a single dataConfig map.
	stableAggregation = aggregation{
		function:   "gds.graph.project",
		arguments:  "row.dataConfig",
		dataConfig: true,
	}
)

// aggregationLayout picks the projection function of the connected server.
func (c *cypherGraphConstructor) aggregationLayout(ctx context.Context) (aggregation, error) {
	t, err := c.runner.RunQuery(ctx, "RETURN gds.version() AS version", map[string]any{})
	if err != nil {
		return aggregation{}, err
	}
	row, err := shapeRow("gds.version", shapeScalar, t)
	if err != nil {
		return aggregation{}, err
	}
	raw, _ := row.GetString("version")
	v, err := version.Parse(raw)
	if err != nil {
		return aggregation{}, err
	}
	if v.Less(version.New(2, 3, 0)) {
		return alphaAggregation, nil
	}
	return stableAggregation, nil
}

// dataConfigRows folds nodesConfig and relationshipConfig into the single
// dataConfig map, where relationship properties are relationshipProperties.
func dataConfigRows(rows []any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		row := r.(map[string]any)
		data := map[string]any{}
		for k, v := range row["nodesConfig"].(map[string]any) {
			data[k] = v
		}
		for k, v := range row["relationshipConfig"].(map[string]any) {
			if k == "properties" {
				k = "relationshipProperties"
			}
			data[k] = v
		}
		out[i] = map[string]any{
			"source":     row["source"],
			"target":     row["target"],
			"dataConfig": data,
		}
	}
	return out
}

func collectNodes(nodes []arrow.Record) (map[int64]*constructNode, []int64, error) {
	byID := make(map[int64]*constructNode)
	var order []int64
	for t, rec := range nodes {
		rows, err := tableRows(rec, "node", t)
		if err != nil {
			return nil, nil, err
		}
		for i, row := range rows {
			id, _ := row.GetInt64(ColumnNodeID)
			n := &constructNode{properties: map[string]any{}}
			for col, v := range row {
				switch col {
				case ColumnNodeID:
				case ColumnLabels:
					if v == nil {
						continue
					}
					labels, ok := toStrings(v)
					if !ok {
						return nil, nil, gdserrors.NewValidationError(constructOperation,
							fmt.Sprintf("node table %d row %d: labels must be a string or a list of strings", t, i))
					}
					n.labels = labels
				default:
					if v != nil {
						n.properties[col] = v
					}
				}
			}
			byID[id] = n
			order = append(order, id)
		}
	}
	return byID, order, nil
}

func aggregationRows(byID map[int64]*constructNode, order []int64, relationships []arrow.Record) ([]any, error) {
	var rows []any
	connected := make(map[int64]bool, len(byID))

	for t, rec := range relationships {
		rels, err := tableRows(rec, "relationship", t)
		if err != nil {
			return nil, err
		}
		for i, rel := range rels {
			source, _ := rel.GetInt64(ColumnSourceNodeID)
			target, _ := rel.GetInt64(ColumnTargetNodeID)
			connected[source] = true
			connected[target] = true

			relConfig := map[string]any{}
			props := map[string]any{}
			for col, v := range rel {
				switch col {
				case ColumnSourceNodeID, ColumnTargetNodeID:
				case ColumnRelationshipType:
					if v == nil {
						continue
					}
					relType, ok := v.(string)
					if !ok {
						return nil, gdserrors.NewValidationError(constructOperation,
							fmt.Sprintf("relationship table %d row %d: relationshipType must be a string", t, i))
					}
					relConfig["relationshipType"] = relType
				default:
					if v != nil {
						props[col] = v
					}
				}
			}
			if len(props) > 0 {
				relConfig["properties"] = props
			}

			nodesConfig := map[string]any{}
			addNodeConfig(nodesConfig, "source", byID[source])
			addNodeConfig(nodesConfig, "target", byID[target])
			rows = append(rows, map[string]any{
				"source":             source,
				"target":             target,
				"nodesConfig":        nodesConfig,
				"relationshipConfig": relConfig,
			})
		}
	}

	for _, id := range order {
		if connected[id] {
			continue
		}
		nodesConfig := map[string]any{}
		addNodeConfig(nodesConfig, "source", byID[id])
		rows = append(rows, map[string]any{
			"source":             id,
			"target":             nil,
			"nodesConfig":        nodesConfig,
			"relationshipConfig": map[string]any{},
		})
	}
	return rows, nil
}

func addNodeConfig(config map[string]any, side string, n *constructNode) {
	if n == nil {
		return
	}
	if len(n.labels) > 0 {
		config[side+"NodeLabels"] = n.labels
	}
	if len(n.properties) > 0 {
		config[side+"NodeProperties"] = n.properties
	}
}
