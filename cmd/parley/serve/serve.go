// Package servecmder provides the serve command that runs the relay server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/artifact"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/inference"
	"github.com/parleylabs/parley/pkg/logger"
	"github.com/parleylabs/parley/pkg/session"
	"github.com/parleylabs/parley/pkg/speech"
	"github.com/parleylabs/parley/pkg/speech/edge"
	"github.com/parleylabs/parley/server"
)

type ServeCommander struct {
	listen      string
	endpoint    string
	model       string
	voice       string
	artifactDir string
	configDir   string
	debug       bool
	logger      *zap.Logger
}

const serveLongDesc string = `Run the relay server.

Configuration is resolved from flags, PARLEY_-prefixed environment
variables, an optional config.toml, and built-in defaults, in that order.`

const serveShortDesc string = "Run the relay server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", ":8080", "Address for the relay to listen on")
	cmd.Flags().StringVarP(&cmder.endpoint, "endpoint", "e", "", "Remote inference endpoint URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Inference model identifier")
	cmd.Flags().StringVar(&cmder.voice, "voice", "", "Speech synthesis voice")
	cmd.Flags().StringVar(&cmder.artifactDir, "artifact-dir", "", "Directory for synthesized audio (default: in-memory)")
	cmd.Flags().StringVar(&cmder.configDir, "config-dir", "", "Directory containing config.toml")

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	c.applyFlagOverrides(cmd, v)

	static := config.StaticFromViper(v)
	runtime := config.NewHolder(config.RuntimeFromViper(v))

	driver, err := c.newArtifactDriver(static)
	if err != nil {
		return err
	}
	defer driver.Close()

	reaper := artifact.NewReaper(driver, static.ReapInterval, static.Retention, c.logger)
	reaper.Start()
	defer reaper.Stop()

	engine := edge.NewClient(edge.Config{}, c.logger)

	pool, err := speech.NewPool(&speech.PoolConfig{
		Renderer:   speech.NewRenderer(engine, c.logger),
		NumWorkers: static.PoolWorkers,
		QueueSize:  static.PoolQueueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating synthesis pool: %w", err)
	}
	defer pool.Close()

	srv := server.NewServer(static, runtime, server.Deps{
		Sessions:  session.NewStore(),
		Inference: inference.NewClient(static.Persona, c.logger),
		Pool:      pool,
		Engine:    engine,
		Artifacts: driver,
	}, c.logger)

	snapshot := runtime.Snapshot()
	c.logger.Info("starting relay",
		zap.String("listen", static.ListenAddr),
		zap.String("endpoint", snapshot.Endpoint),
		zap.String("model", snapshot.Model),
		zap.String("voice", snapshot.Voice),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("relay server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return srv.Shutdown()
	}
}

// applyFlagOverrides lets explicit CLI flags win over env and file values.
func (c *ServeCommander) applyFlagOverrides(cmd *cobra.Command, v *viper.Viper) {
	if cmd.Flags().Changed("listen") {
		v.Set("server.listen", c.listen)
	}
	if cmd.Flags().Changed("endpoint") {
		v.Set("inference.endpoint", c.endpoint)
	}
	if cmd.Flags().Changed("model") {
		v.Set("inference.model", c.model)
	}
	if cmd.Flags().Changed("voice") {
		v.Set("speech.voice", c.voice)
	}
	if cmd.Flags().Changed("artifact-dir") {
		v.Set("artifacts.dir", c.artifactDir)
	}
}

func (c *ServeCommander) newArtifactDriver(static config.Static) (artifact.Driver, error) {
	if static.ArtifactDir != "" {
		driver, err := artifact.NewDiskDriver(static.ArtifactDir, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating disk artifact store: %w", err)
		}
		c.logger.Info("using disk artifact storage", zap.String("dir", static.ArtifactDir))
		return driver, nil
	}

	c.logger.Info("using in-memory artifact storage")
	return artifact.NewMemoryDriver(), nil
}
