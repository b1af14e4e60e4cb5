package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/23skdu/gdsclient/client"
	"github.com/23skdu/gdsclient/internal/config"
	"github.com/23skdu/gdsclient/internal/logging"
	"github.com/23skdu/gdsclient/internal/telemetry"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

type connectFunc func(ctx context.Context, cfg config.Config, logger *zap.Logger) (client.QueryRunner, error)

// app holds the flags and the session shared by every command of one run.
type app struct {
	envFiles  []string
	uri       string
	database  string
	logLevel  string
	logFormat string
	output    string
	arrowOut  string

	out     io.Writer
	errOut  io.Writer
	connect connectFunc

	cfg      config.Config
	logger   *zap.Logger
	gds      *client.GraphDataScience
	shutdown func(context.Context) error
}

func newApp() *app {
	return &app{
		out:     os.Stdout,
		errOut:  os.Stderr,
		connect: connect,
	}
}

// run executes one command line and always releases the session.
func run(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.teardown(context.WithoutCancel(ctx)))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gdsctl",
		Short:         "Run graph data science catalog operations",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.StringVar(&a.uri, "uri", "", "database URI, overrides GDS_URI")
	flags.StringVarP(&a.database, "database", "d", "", "database name, overrides GDS_DATABASE")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error, overrides GDS_LOG_LEVEL")
	flags.StringVar(&a.logFormat, "log-format", "", "console or json, overrides GDS_LOG_FORMAT")
	flags.StringVarP(&a.output, "output", "o", formatYAML, "output format: yaml or json")
	flags.StringVar(&a.arrowOut, "arrow-out", "", "also write table results to this Arrow IPC file")

	root.AddCommand(
		newVersionCmd(a),
		newGraphCmd(a),
		newModelCmd(a),
		newSystemCmd(a),
		newCallCmd(a),
	)
	return root
}

// setup loads the configuration, then connects. Flags override the
// environment.
func (a *app) setup(ctx context.Context) error {
	if a.output != formatYAML && a.output != formatJSON {
		return fmt.Errorf("unsupported output format %q, expected yaml or json", a.output)
	}

	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}
	if a.uri != "" {
		cfg.URI = a.uri
	}
	if a.database != "" {
		cfg.Database = a.database
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := config.Validate(&cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: a.errOut,
	})
	if err != nil {
		return err
	}
	a.logger = logger

	a.shutdown, err = telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName:    "gdsctl",
		ServiceVersion: buildVersion,
		Endpoint:       cfg.TraceEndpoint,
		Insecure:       cfg.TraceInsecure,
		UseStdout:      cfg.TraceStdout,
		Output:         a.errOut,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}

	runner, err := a.connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	gds, err := client.New(ctx, runner,
		client.WithLogger(logging.WithComponent(logger, "client")),
		client.WithDatabase(cfg.Database))
	if err != nil {
		_ = runner.Close(ctx)
		return err
	}
	a.gds = gds

	logger.Debug("Connected",
		zap.String("uri", cfg.URI),
		zap.String("server_version", gds.ServerVersion().String()),
		zap.Bool("arrow", cfg.ArrowEnabled()))
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.gds != nil {
		errs = append(errs, a.gds.Close(ctx))
		a.gds = nil
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// connect dials the Bolt endpoint and, when GDS_ARROW_ADDR is set, layers
// the Arrow Flight runner on top for graph construction.
func connect(ctx context.Context, cfg config.Config, logger *zap.Logger) (client.QueryRunner, error) {
	neo, err := client.DialNeo4j(ctx, cfg.URI, cfg.User, cfg.Password, cfg.Database,
		logging.WithComponent(logger, "bolt"))
	if err != nil {
		return nil, err
	}
	if !cfg.ArrowEnabled() {
		return neo, nil
	}

	runner, err := client.NewArrowQueryRunner(ctx, neo, client.ArrowConfig{
		Addr:           cfg.ArrowAddr,
		TLS:            cfg.ArrowTLS,
		Username:       cfg.User,
		Password:       cfg.Password,
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         logging.WithComponent(logger, "arrow"),
	})
	if err != nil {
		_ = neo.Close(ctx)
		return nil, err
	}
	return runner, nil
}
