// Command agentloop runs the conversational coding agent in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentloop"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/logging"
)

var (
	// Global flags
	configPath string

	v = config.NewViper("")

	logger  logging.Logger = logging.NoOpLogger{}
	closeFn                = func() {}
	cfg     *config.Config
)

// flagKeys maps config keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"backend.provider": "provider",
	"backend.model":    "model",
	"agent.work_dir":   "workdir",
	"agent.max_turns":  "max-turns",
	"log.level":        "log-level",
	"log.format":       "log-format",
	"log.backend":      "log-backend",
}

// rootCmd starts the interactive session.
var rootCmd = &cobra.Command{
	Use:   "agentloop",
	Short: "Conversational coding agent with streamed tool use",
	Long: `agentloop streams a language model response, runs the file and shell
tools it asks for as soon as their tags are complete and feeds the results
back until the model stops using tools or calls attempt_completion.

Run without arguments to start the interactive session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if configPath != "" {
			v.SetConfigFile(configPath)
		}
		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		logger, closeFn, err = cfg.Log.NewLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		closeFn()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newAgentLoop(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "agentloop: type a task, or 'quit' to exit")
		err = a.Serve(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "\nGoodbye!")
		return err
	},
}

// runCmd executes a single task.
var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a single task and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgentLoop(cmd)
		if err != nil {
			return err
		}
		res, err := a.RunTask(cmd.Context(), strings.Join(args, " "))
		logger.Info("task.summary", "task_id", res.TaskID, "turns", res.Turns, "handoffs", res.Handoffs)
		return err
	},
}

func newAgentLoop(cmd *cobra.Command) (*agentloop.AgentLoop, error) {
	op := newConsoleOperator(cmd.InOrStdin(), cmd.OutOrStdout())
	return agentloop.NewFromConfig(cfg, op, func(o *agentloop.Options) {
		o.Logger = logger
	})
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./agentloop.yaml or ~/.config/agentloop/agentloop.yaml)")
	flags.String("provider", "", "backend provider: anthropic or openai")
	flags.String("model", "", "backend model name")
	flags.String("workdir", "", "working directory for the built-in tools")
	flags.Int("max-turns", 0, "maximum turns per task (0 = unlimited)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-backend", "", "log backend: slog or zap")

	// Explicitly set flags win over the config file and the environment.
	for key, name := range flagKeys {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(name)))
	}

	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
