// Package main is the entrypoint for the junoctl CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Import modules to register them
	_ "github.com/nlarkin/junoctl/internal/module/cli"
	_ "github.com/nlarkin/junoctl/internal/module/facts"
	_ "github.com/nlarkin/junoctl/internal/module/rpc"
	_ "github.com/nlarkin/junoctl/internal/module/snmpprobe"

	"github.com/nlarkin/junoctl/internal/device"
	"github.com/nlarkin/junoctl/internal/device/transport"
	"github.com/nlarkin/junoctl/internal/executor"
	"github.com/nlarkin/junoctl/internal/logging"
	"github.com/nlarkin/junoctl/internal/module"
	"github.com/nlarkin/junoctl/internal/playbook"
	"github.com/nlarkin/junoctl/internal/runner"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	debug   bool
	noColor bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "junoctl",
	Short: "Junoctl - single-shot command execution for Junos devices",
	Long: `Junoctl runs commands on Juniper network devices over NETCONF or
telnet and captures their output locally.

A single command can be run directly with 'junoctl cli', or a YAML
playbook can target several devices with 'junoctl run'.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output with detailed task information")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(cliCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(modulesCmd)
}

// cliFlags holds the connection flags for the cli subcommand.
var cliFlags struct {
	host    string
	user    string
	passwd  string
	port    int
	keyFile string
	mode    string
	timeout int
	logfile string
	dest    string
	format  string
}

// cliCmd executes a single command on one device.
var cliCmd = &cobra.Command{
	Use:   "cli <command>",
	Short: "Run a single CLI command on a device",
	Long: `Open a session to one device, execute exactly one command, and close
the session. The output is written to --dest when given; nothing is
echoed on success otherwise.

Examples:
  junoctl cli "show version" --host r1 --user admin --passwd secret --dest r1.txt
  junoctl cli "show chassis hardware" --host r1 --format xml --dest r1.xml
  junoctl cli "show interfaces terse" --host r1 --mode telnet --timeout 60`,
	Args: cobra.ExactArgs(1),
	RunE: runCLI,
}

func init() {
	cliCmd.Flags().StringVar(&cliFlags.host, "host", "", "Device hostname or address (required)")
	cliCmd.Flags().StringVar(&cliFlags.user, "user", "", "Login user (default: current user)")
	cliCmd.Flags().StringVar(&cliFlags.passwd, "passwd", "", "Login password")
	cliCmd.Flags().IntVar(&cliFlags.port, "port", 0, "Transport port (default: 830 for netconf, 23 for telnet)")
	cliCmd.Flags().StringVar(&cliFlags.keyFile, "ssh-private-key-file", "", "SSH private key path")
	cliCmd.Flags().StringVar(&cliFlags.mode, "mode", "", "Connection mode: netconf, telnet or serial (default: netconf)")
	cliCmd.Flags().IntVar(&cliFlags.timeout, "timeout", 0, "RPC timeout in seconds (0 = client default)")
	cliCmd.Flags().StringVar(&cliFlags.logfile, "logfile", "", "Append connection and execution logs to this file")
	cliCmd.Flags().StringVar(&cliFlags.dest, "dest", "", "Write the command output to this file")
	cliCmd.Flags().StringVar(&cliFlags.format, "format", "", "Output format: text or xml (default: text)")
	cliCmd.MarkFlagRequired("host")
}

func runCLI(cmd *cobra.Command, args []string) error {
	mode, err := device.ParseMode(cliFlags.mode)
	if err != nil {
		return err
	}
	format, err := device.ParseFormat(cliFlags.format)
	if err != nil {
		return err
	}

	cfg := device.Config{
		Host:     cliFlags.host,
		User:     cliFlags.user,
		Password: cliFlags.passwd,
		Port:     cliFlags.port,
		KeyFile:  cliFlags.keyFile,
		Mode:     mode,
		Timeout:  cliFlags.timeout,
	}
	req := runner.Request{
		Command: args[0],
		Format:  format,
		Dest:    cliFlags.dest,
	}

	log, closer, err := openLogger(cliFlags.logfile)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	r := runner.New(transport.NewDialer())
	r.Log = log

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := r.Run(ctx, cfg, req); err != nil {
		return err
	}
	return nil
}

// runCmd executes a playbook
var runCmd = &cobra.Command{
	Use:   "run <playbook.yaml>",
	Short: "Run a playbook",
	Long: `Execute a playbook against the devices it targets.

Examples:
  junoctl run collect.yaml
  junoctl run collect.yaml --debug`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaybook,
}

func init() {
	runCmd.Flags().String("logfile", "", "Append connection and execution logs to this file")
}

func runPlaybook(cmd *cobra.Command, args []string) error {
	playbookPath := args[0]

	// Check if file exists
	if _, err := os.Stat(playbookPath); os.IsNotExist(err) {
		return fmt.Errorf("playbook not found: %s", playbookPath)
	}

	// Parse playbook
	pb, err := playbook.ParseFile(playbookPath)
	if err != nil {
		return fmt.Errorf("failed to parse playbook: %w", err)
	}

	logfile, _ := cmd.Flags().GetString("logfile")
	log, closer, err := openLogger(logfile)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	// Create executor
	exec := executor.New(transport.NewDialer())
	exec.Debug = debug
	exec.Log = log
	exec.Output.SetColor(!noColor)
	exec.Output.SetDebug(debug)

	ctx, cancel := signalContext()
	defer cancel()

	// Run playbook
	result, err := exec.Run(ctx, pb)
	if err != nil {
		return err
	}

	if !result.Success {
		os.Exit(1)
	}

	return nil
}

// validateCmd validates a playbook without running it
var validateCmd = &cobra.Command{
	Use:   "validate <playbook.yaml> [playbook2.yaml ...]",
	Short: "Validate one or more playbooks",
	Long: `Parse and validate playbooks without executing them.

This checks for:
  - Valid YAML syntax
  - Required fields (hosts, tasks)
  - Valid module names
  - Task structure

Examples:
  junoctl validate collect.yaml
  junoctl validate *.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: validatePlaybooks,
}

func validatePlaybooks(cmd *cobra.Command, args []string) error {
	var hasErrors bool

	for _, playbookPath := range args {
		if err := validatePlaybook(playbookPath); err != nil {
			fmt.Printf("FAIL: %s - %v\n", playbookPath, err)
			hasErrors = true
		} else {
			fmt.Printf("OK: %s\n", playbookPath)
		}
	}

	if hasErrors {
		return fmt.Errorf("one or more playbooks failed validation")
	}

	fmt.Printf("\nAll %d playbook(s) valid.\n", len(args))
	return nil
}

func validatePlaybook(playbookPath string) error {
	// Check if file exists
	if _, err := os.Stat(playbookPath); os.IsNotExist(err) {
		return fmt.Errorf("not found")
	}

	// Parse playbook
	pb, err := playbook.ParseFile(playbookPath)
	if err != nil {
		return err
	}

	// Validate modules exist
	var errors []string
	for _, play := range pb.Plays {
		if _, err := device.ParseMode(play.Mode); err != nil {
			errors = append(errors, err.Error())
		}
		for _, task := range play.Tasks {
			if err := playbook.ResolveModule(task); err != nil {
				errors = append(errors, fmt.Sprintf("%s: %v", task.String(), err))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%d error(s): %s", len(errors), errors[0])
	}

	return nil
}

// modulesCmd lists available modules
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List available modules",
	Long:  `Display a list of all available modules that can be used in playbooks.`,
	Run: func(cmd *cobra.Command, args []string) {
		modules := module.List()
		if len(modules) == 0 {
			fmt.Println("No modules registered.")
			return
		}

		fmt.Println("Available modules:")
		fmt.Println()
		for _, name := range modules {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println()
		fmt.Printf("Total: %d modules\n", len(modules))
	},
}

// openLogger returns a discard logger when no logfile was requested.
func openLogger(path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return logging.Discard(), nil, nil
	}
	return logging.OpenFile(path)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}
