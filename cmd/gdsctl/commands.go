package main

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/23skdu/gdsclient/client"
	"github.com/23skdu/gdsclient/internal/loader"
	"github.com/23skdu/gdsclient/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := a.gds.Version(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(map[string]any{"client": buildVersion, "server": server})
		},
	}
}

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Manage the graph catalog",
	}

	list := &cobra.Command{
		Use:   "list [name]",
		Short: "List projected graphs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref client.GraphRef
			if len(args) == 1 {
				ref = client.GraphName(args[0])
			}
			t, err := a.gds.Graph().List(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return a.render(t)
		},
	}

	exists := &cobra.Command{
		Use:   "exists <name>",
		Short: "Check whether a graph is in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := a.gds.Graph().Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(row)
		},
	}

	var dropOpts client.DropOptions
	drop := &cobra.Command{
		Use:   "drop <name>",
		Short: "Remove a graph from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := a.gds.Graph().Drop(cmd.Context(), client.GraphName(args[0]), dropOpts)
			if err != nil {
				return err
			}
			return a.render(row)
		},
	}
	drop.Flags().BoolVar(&dropOpts.FailIfMissing, "fail-if-missing", false, "fail when the graph does not exist")
	drop.Flags().StringVar(&dropOpts.DBName, "db-name", "", "database the graph was projected from")
	drop.Flags().StringVar(&dropOpts.Username, "username", "", "owner of the graph (admin only)")

	var projectConfig string
	project := &cobra.Command{
		Use:   "project <name> <node-spec> <relationship-spec>",
		Short: "Project a graph from the database",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(projectConfig)
			if err != nil {
				return err
			}
			_, row, err := a.gds.Graph().Project().Call(cmd.Context(), args[0],
				parseValue(args[1]), parseValue(args[2]), cfg)
			if err != nil {
				return err
			}
			return a.render(row)
		},
	}
	project.Flags().StringVar(&projectConfig, "config", "", "projection configuration as YAML or JSON")

	var nodeFiles, relationshipFiles []string
	var concurrency int
	construct := &cobra.Command{
		Use:   "construct <name>",
		Short: "Construct a graph from Parquet or Arrow IPC files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem := memory.NewGoAllocator()
			nodes, err := loader.LoadAll(nodeFiles, loader.EntityNode, mem)
			if err != nil {
				return err
			}
			defer loader.Release(nodes)
			rels, err := loader.LoadAll(relationshipFiles, loader.EntityRelationship, mem)
			if err != nil {
				return err
			}
			defer loader.Release(rels)

			if concurrency == 0 {
				concurrency = a.cfg.Concurrency
			}
			g, err := a.gds.Graph().Construct(cmd.Context(), args[0], nodes, rels, concurrency)
			if err != nil {
				return err
			}
			a.logger.Info("Graph constructed",
				zap.String("graph", g.Name()),
				zap.Int("node_tables", len(nodes)),
				zap.Int("relationship_tables", len(rels)))
			return a.render(map[string]any{
				"graphName":          g.Name(),
				"nodeTables":         len(nodes),
				"relationshipTables": len(rels),
			})
		},
	}
	construct.Flags().StringSliceVar(&nodeFiles, "nodes", nil, "node files (.parquet, .arrow, .ipc, .feather)")
	construct.Flags().StringSliceVar(&relationshipFiles, "relationships", nil, "relationship files")
	construct.Flags().IntVar(&concurrency, "concurrency", 0, "upload and server concurrency, overrides GDS_CONCURRENCY")
	_ = construct.MarkFlagRequired("nodes")

	var labels []string
	streamNodeProperty := &cobra.Command{
		Use:   "stream-node-property <graph> <property>",
		Short: "Stream one node property of a projected graph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.gds.Graph().StreamNodeProperty(cmd.Context(), client.GraphName(args[0]), args[1], labels, nil)
			if err != nil {
				return err
			}
			return a.render(t)
		},
	}
	streamNodeProperty.Flags().StringSliceVar(&labels, "labels", nil, "node labels to stream (default all)")

	cmd.AddCommand(list, exists, drop, project, construct, streamNodeProperty)
	return cmd
}

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the model catalog",
	}

	list := &cobra.Command{
		Use:   "list [name]",
		Short: "List models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref client.ModelRef
			if len(args) == 1 {
				ref = client.ModelName(args[0])
			}
			var t *client.Table
			var err error
			if a.gds.ServerVersion().AtLeast(version.New(2, 5, 0)) {
				t, err = a.gds.Model().List(cmd.Context(), ref)
			} else {
				t, err = a.gds.Beta().Model().List(cmd.Context(), ref)
			}
			if err != nil {
				return err
			}
			return a.render(t)
		},
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Show the name and type of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *client.Model
			var err error
			if a.gds.ServerVersion().AtLeast(version.New(2, 5, 0)) {
				m, err = a.gds.Model().Get(cmd.Context(), args[0])
			} else {
				m, err = a.gds.Beta().Model().Get(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return a.render(map[string]any{"modelName": m.Name(), "modelType": m.Type()})
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func newSystemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Progress, resource usage and debug information",
	}

	progress := &cobra.Command{
		Use:   "progress [job-id]",
		Short: "List the progress of running jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobID string
			if len(args) == 1 {
				jobID = args[0]
			}
			t, err := a.gds.System().ListProgress(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			return a.render(t)
		},
	}

	monitor := &cobra.Command{
		Use:   "monitor",
		Short: "Show server resource usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			system := a.gds.Alpha().System()
			if a.gds.ServerVersion().AtLeast(version.New(2, 5, 0)) {
				system = a.gds.System()
			}
			row, err := system.SystemMonitor(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(row)
		},
	}

	sysInfo := &cobra.Command{
		Use:   "sysinfo",
		Short: "Show the server environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.gds.Debug().SysInfo(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(client.SysInfoMap(t))
		},
	}

	cmd.AddCommand(progress, monitor, sysInfo)
	return cmd
}

func newCallCmd(a *app) *cobra.Command {
	var configFlag string
	cmd := &cobra.Command{
		Use:   "call <procedure> [args...]",
		Short: "Invoke a procedure by its dotted path",
		Long: `Invoke any procedure of the catalog by its dotted path. Arguments are
read as YAML, so numbers, booleans, lists and maps keep their types.

Example:
  gdsctl call gds.graph.project g Person '{KNOWS: {orientation: UNDIRECTED}}'
  gdsctl call gds.graph.list --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(configFlag)
			if err != nil {
				return err
			}
			ns, err := a.gds.Resolve(args[0])
			if err != nil {
				return err
			}
			values := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				values = append(values, parseValue(arg))
			}
			t, err := ns.Invoke(cmd.Context(), values, cfg)
			if err != nil {
				return err
			}
			return a.render(t)
		},
	}
	cmd.Flags().StringVar(&configFlag, "config", "", "procedure configuration as YAML or JSON")
	return cmd
}
