package cli

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/workflow"
)

// promptFlags are shared by run and chat
type promptFlags struct {
	model       string
	temperature float64
	stop        []string
	printTokens bool
	varsFile    string
}

func (f *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.model, "model", "", "model name (default from settings)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature (default from settings)")
	cmd.Flags().StringSliceVar(&f.stop, "stop", nil, "stop sequence, repeatable")
	cmd.Flags().BoolVar(&f.printTokens, "print-tokens", false, "colour each streamed token")
	cmd.Flags().StringVar(&f.varsFile, "vars", "", "YAML file with variable values")
}

func (f *promptFlags) workflowConfig(cmd *cobra.Command, fileLocation string) workflow.WorkflowConfig {
	cfg := workflow.WorkflowConfig{
		FileLocation: fileLocation,
		Model:        globalConfig.Model(),
		Temperature:  globalConfig.Temperature(),
		Stop:         f.stop,
		VarsFile:     f.varsFile,
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Temperature = f.temperature
	}
	return cfg
}

func newRunCmd() *cobra.Command {
	flags := &promptFlags{}
	cmd := &cobra.Command{
		Use:   "run <prompt-file>",
		Short: "Run a prompt file once and save the completion to history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromptWorkflow(cmd, flags, args[0], func(deps workflow.Deps) (workflow.WorkflowRunner, error) {
				return workflow.NewRunWorkflow(deps)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newChatCmd() *cobra.Command {
	flags := &promptFlags{}
	cmd := &cobra.Command{
		Use:   "chat <prompt-file>",
		Short: "Chat with a prompt file as the system message",
		Long: `Chat with a prompt file as the system message.
An empty response ends the conversation; every assistant turn is saved to history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromptWorkflow(cmd, flags, args[0], func(deps workflow.Deps) (workflow.WorkflowRunner, error) {
				return workflow.NewChatWorkflow(deps)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runPromptWorkflow(cmd *cobra.Command, flags *promptFlags, fileLocation string, build func(workflow.Deps) (workflow.WorkflowRunner, error)) error {
	c := newContainer(globalConfig, cmd.OutOrStdout(), flags.printTokens)
	deps, err := c.workflowDeps()
	if err != nil {
		return err
	}
	runner, err := build(deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), interruptSignals()...)
	defer stop()

	c.console.Clear()
	logger := GetLogger()
	logger.Info("starting %s workflow for %s", runner.Name(), fileLocation)
	m, err := runner.Run(ctx, flags.workflowConfig(cmd, fileLocation))
	if err != nil {
		return fmt.Errorf("%s: %w", runner.Name(), err)
	}
	logger.Debug("%s workflow finished after %d steps", runner.Name(), len(m.StatusHistory()))
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
