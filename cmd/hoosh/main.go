package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoosh/hoosh/internal/agent"
	"github.com/hoosh/hoosh/internal/backend"
	"github.com/hoosh/hoosh/internal/config"
	gocontext "github.com/hoosh/hoosh/internal/context"
	"github.com/hoosh/hoosh/internal/conversation"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/executor"
	"github.com/hoosh/hoosh/internal/log"
	"github.com/hoosh/hoosh/internal/permission"
	"github.com/hoosh/hoosh/internal/system"
	"github.com/hoosh/hoosh/internal/tool"
)

var version = "0.1.0"

func init() {
	_ = log.Init()
}

func main() {
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var promptFlag string

func init() {
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Custom prompt to send")
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "hoosh [message]",
	Short: "Hoosh - AI coding assistant for the terminal",
	Long: `Hoosh is a terminal coding assistant built around a turn loop, a
permission-checked tool executor, and a sub-agent dispatcher.

Non-interactive mode:
  hoosh "your message"      Send a message directly
  echo "message" | hoosh    Send a message via stdin
  hoosh -p "prompt"         Use a custom prompt`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message := getInputMessage(args)
		if message == "" {
			return fmt.Errorf("no message given; pass one as an argument, via -p, or pipe it on stdin")
		}
		return run(message)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hoosh version %s\n", version)
	},
}

func getInputMessage(args []string) string {
	if promptFlag != "" {
		return promptFlag
	}
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err == nil && len(data) > 0 {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// run wires config, permission, tool, context, executor, backend, and
// agent packages together for one non-interactive turn — the entrypoint
// equivalent of the teacher's runNonInteractive, rebuilt around this
// module's event-driven Agent.HandleTurn instead of a chunk-streaming
// provider.Stream channel.
func run(userMessage string) error {
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	appCfg, err := config.NewLoader().Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sys := &system.System{Backend: appCfg.Provider, Model: appCfg.Model, Cwd: cwd, IsGit: isGitRepo(cwd)}
	systemPrompt := sys.Prompt()

	be, err := backend.New(ctx, backend.Options{
		Provider:     appCfg.Provider,
		Model:        appCfg.Model,
		APIKey:       appCfg.APIKey,
		SystemPrompt: systemPrompt,
		MaxTokens:    appCfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("building backend %q: %w. Set HOOSH_PROVIDER/HOOSH_API_KEY or edit ~/.config/hoosh/config.toml", appCfg.Provider, err)
	}

	rules, err := permission.LoadEngineRules(cwd)
	if err != nil {
		return fmt.Errorf("loading permission rules: %w", err)
	}
	engine := permission.NewEngine(rules)

	bus := event.NewBus()
	// executor.New wires engine.OnUnresolved to its own approval flow;
	// with no approval channel configured (no interactive UI driver in
	// this non-interactive entrypoint), Executor.awaitApproval's built-in
	// fallback auto-approves unresolved checks rather than blocking
	// forever waiting for a response that will never arrive.
	exec := executor.New(tool.DefaultRegistry, engine, bus.Sender(), cwd)

	var subagentTimeout time.Duration
	if appCfg.SubagentTimeoutSeconds > 0 {
		subagentTimeout = time.Duration(appCfg.SubagentTimeoutSeconds) * time.Second
	}
	manager := &agent.TaskManager{
		Backend:        be,
		ParentModelID:  appCfg.Model,
		Cwd:            cwd,
		Sender:         bus.Sender(),
		DefaultTimeout: subagentTimeout,
	}
	if t, ok := tool.DefaultRegistry.Get("Task"); ok {
		if taskTool, ok := t.(*tool.TaskTool); ok {
			taskTool.SetExecutor(manager)
		}
	}

	conv := conversation.New()
	conv.AddSystem(systemPrompt)
	conv.AddUser(userMessage, nil)

	a := &agent.Agent{
		Conversation: conv,
		Context:      gocontext.NewManager(gocontext.NewTokenAccountant(0)),
		Backend:      be,
		Executor:     exec,
		Registry:     tool.DefaultRegistry,
		Sender:       bus.Sender(),
		MaxSteps:     agent.DefaultMaxSteps,
	}

	done := make(chan error, 1)
	go func() { done <- a.HandleTurn(ctx) }()

	for {
		select {
		case ev := <-bus.Receive():
			printEvent(ev)
		case err := <-done:
			drainEvents(bus)
			fmt.Println()
			return err
		}
	}
}

func isGitRepo(cwd string) bool {
	_, err := os.Stat(filepath.Join(cwd, ".git"))
	return err == nil
}

func drainEvents(bus *event.Bus) {
	for {
		select {
		case ev := <-bus.Receive():
			printEvent(ev)
		default:
			return
		}
	}
}

func printEvent(ev event.Event) {
	switch ev.Type {
	case event.FinalResponse:
		fmt.Print(ev.Text)
	case event.Error:
		fmt.Fprintf(os.Stderr, "error: %s\n", ev.Text)
	case event.ToolCalls:
		for _, c := range ev.Calls {
			fmt.Fprintf(os.Stderr, "  -> %s\n", c.Display)
		}
	case event.MaxStepsReached:
		fmt.Fprintf(os.Stderr, "stopped after %d steps without a final response\n", ev.MaxSteps)
	case event.UserRejection:
		fmt.Fprintf(os.Stderr, "rejected: %s\n", strings.Join(ev.Names, ", "))
	case event.PermissionDenied:
		fmt.Fprintf(os.Stderr, "permission denied: %s\n", strings.Join(ev.Names, ", "))
	}
}
