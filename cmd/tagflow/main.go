package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tagflow/internal/app"
	"tagflow/internal/catalog"
	"tagflow/internal/config"
	"tagflow/internal/secrets"

	"filippo.io/age"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// readConfig reads the config file from the default location.
func readConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Scan", "Worker").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, operation, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

var rootCmd = &cobra.Command{
	Use:          "tagflow",
	Short:        "File catalog with path tags and background thumbnails",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", defaults["config_path"])
		fmt.Fprintf(out, "Instance ID: %s\n", instanceID)
		fmt.Fprintf(out, "Base Dir:    %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := readConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", defaults["config_path"])
		fmt.Fprintf(out, "Instance ID:   %s\n", cfg.InstanceID)
		fmt.Fprintf(out, "Base Dir:      %s\n", cfg.BaseDir)
		fmt.Fprintf(out, "Log Dir:       %s\n", cfg.LogDir)
		fmt.Fprintf(out, "Database:      %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Fprintf(out, "Cache Dir:     %s\n", cfg.Cache.Dir)
		fmt.Fprintf(out, "Scan Interval: %s\n", cfg.Scan.Interval)
		fmt.Fprintf(out, "Libraries:     %d\n", len(cfg.Libraries))
		return nil
	},
}

// library command
var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect libraries",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List libraries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListLibraries")
		if err != nil {
			return err
		}
		defer a.Close()

		libs, err := a.Libraries(cmd.Context())
		if err != nil {
			return err
		}
		if len(libs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No libraries configured.")
			return nil
		}

		rows := make([][]string, 0, len(libs))
		for _, lib := range libs {
			scanned := "never"
			if lib.LastScannedAt.Valid {
				scanned = formatTime(lib.LastScannedAt.Time)
			}
			rows = append(rows, []string{strconv.FormatInt(lib.ID, 10), lib.Name, lib.Protocol, lib.BasePath, scanned})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Protocol", "Base Path", "Last Scan"}, rows,
			[]columnAlignment{alignRight})
		return nil
	},
}

var libraryTestCmd = &cobra.Command{
	Use:   "test NAME",
	Short: "Check that a library's storage is reachable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "TestLibrary")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.TestLibrary(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("library %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Library %s is reachable\n", args[0])
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [NAME...]",
	Short: "Scan libraries (all when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		results, scanErr := a.Scan(cmd.Context(), args)
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.LibraryName,
				strconv.Itoa(r.Inserted),
				strconv.Itoa(r.Updated),
				strconv.Itoa(r.Unchanged),
				strconv.Itoa(r.Lost),
				strconv.Itoa(r.TasksQueued),
				r.Duration.Truncate(time.Millisecond).String(),
			})
		}
		if len(rows) > 0 {
			renderTable(cmd.OutOrStdout(), []string{"Library", "New", "Updated", "Unchanged", "Lost", "Tasks", "Took"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight})
		}
		return scanErr
	},
}

// worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the task worker and scheduled scans until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		drain, _ := cmd.Flags().GetBool("drain")

		a, err := newApp(cmd.Context(), "Worker")
		if err != nil {
			return err
		}
		defer a.Close()

		if drain {
			n, err := a.ProcessPending(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d task(s)\n", n)
			return err
		}
		return a.RunDaemon(cmd.Context())
	},
}

// task command
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage background tasks",
}

var taskEnqueueCmd = &cobra.Command{
	Use:   "enqueue FILE_ID",
	Short: "Queue a task for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetInt64("priority")

		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "EnqueueTask")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.EnqueueTask(cmd.Context(), fileID, taskType, priority)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued task %d\n", id)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusName, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt64("limit")

		filter := catalog.TaskFilter{Limit: limit}
		if statusName != "" {
			status, ok := catalog.ParseTaskStatus(statusName)
			if !ok {
				return fmt.Errorf("unknown task status: %s", statusName)
			}
			filter.Status = &status
		}

		a, err := newApp(cmd.Context(), "ListTasks")
		if err != nil {
			return err
		}
		defer a.Close()

		tasks, err := a.ListTasks(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			return nil
		}

		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []string{
				strconv.FormatInt(t.ID, 10),
				strconv.FormatInt(t.FileID, 10),
				t.TaskType,
				strconv.FormatInt(t.Priority, 10),
				catalog.TaskStatusName(t.Status),
				formatTime(t.CreatedAt),
				t.ErrorMessage.String,
			})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "File", "Type", "Priority", "Status", "Created", "Error"}, rows,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignRight})
		return nil
	},
}

var taskPendingCmd = &cobra.Command{
	Use:   "pending FILE_ID",
	Short: "Report whether a file has a pending or running task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskType, _ := cmd.Flags().GetString("type")

		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "HasPending")
		if err != nil {
			return err
		}
		defer a.Close()

		pending, err := a.HasPending(cmd.Context(), fileID, taskType)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pending)
		return nil
	},
}

var taskRetryCmd = &cobra.Command{
	Use:   "retry TASK_ID",
	Short: "Re-queue a failed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "RetryTask")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.RetryTask(cmd.Context(), taskID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued task %d (retry of %d)\n", id, taskID)
		return nil
	},
}

// tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Browse tags",
}

var tagsTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the tag hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "TagTree")
		if err != nil {
			return err
		}
		defer a.Close()

		tree, err := a.TagTree(cmd.Context())
		if err != nil {
			return err
		}
		if tree.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tags.")
			return nil
		}

		out := cmd.OutOrStdout()
		tree.Walk(func(node *catalog.TagNode, depth int) bool {
			fmt.Fprintf(out, "%s%s  [%d]\n", strings.Repeat("  ", depth), node.Name, node.ID)
			return true
		})
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List catalogued files",
	RunE: func(cmd *cobra.Command, args []string) error {
		tagID, _ := cmd.Flags().GetInt64("tag")
		recursive, _ := cmd.Flags().GetBool("recursive")
		limit, _ := cmd.Flags().GetInt64("limit")
		page, _ := cmd.Flags().GetInt64("page")

		a, err := newApp(cmd.Context(), "ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListFiles(cmd.Context(), tagID, recursive, limit, page)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No files.")
			return nil
		}

		rows := make([][]string, 0, len(files))
		for _, f := range files {
			rows = append(rows, []string{
				strconv.FormatInt(f.ID, 10),
				strconv.FormatInt(f.LibraryID, 10),
				catalog.JoinRelativePath(f.ParentPath, f.Filename),
				strconv.FormatInt(f.Size, 10),
				catalog.FileStatusName(f.Status),
			})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "Library", "Path", "Size", "Status"}, rows,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignRight})
		return nil
	},
}

// secrets command
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the identity used for sealed library options",
}

var secretsKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the age identity file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		recipient, err := secrets.GenerateIdentity(cfg.Secrets.IdentityPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Identity written to %s\nRecipient: %s\n", cfg.Secrets.IdentityPath, recipient)
		return nil
	},
}

var secretsSealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal a value read from stdin for use in library options",
	RunE: func(cmd *cobra.Command, args []string) error {
		recipientFlag, _ := cmd.Flags().GetString("recipient")

		recipient, err := loadRecipient(recipientFlag)
		if err != nil {
			return err
		}

		value, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("no value to seal")
		}

		sealed, err := secrets.Seal(recipient, value)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), sealed)
		return nil
	},
}

// loadRecipient parses the explicit recipient or derives it from the
// configured identity file.
func loadRecipient(explicit string) (age.Recipient, error) {
	if explicit != "" {
		return secrets.ParseRecipient(explicit)
	}
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}
	identities, err := secrets.LoadIdentities(cfg.Secrets.IdentityPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'tagflow secrets keygen' or pass --recipient)", err)
	}
	return secrets.RecipientForIdentities(identities)
}

// readSecret reads one line from in, without echo when in is a terminal.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Value: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading value: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// library subcommands
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryTestCmd)

	// task subcommands
	taskCmd.AddCommand(taskEnqueueCmd)
	taskEnqueueCmd.Flags().String("type", catalog.ThumbnailTaskType, "Task type")
	taskEnqueueCmd.Flags().Int64("priority", 0, "Higher runs first")
	taskCmd.AddCommand(taskListCmd)
	taskListCmd.Flags().String("status", "", "Only tasks with this status (pending, running, completed, failed)")
	taskListCmd.Flags().Int64P("limit", "n", 50, "Maximum number of tasks to show")
	taskCmd.AddCommand(taskPendingCmd)
	taskPendingCmd.Flags().String("type", catalog.ThumbnailTaskType, "Task type")
	taskCmd.AddCommand(taskRetryCmd)

	// tags subcommands
	tagsCmd.AddCommand(tagsTreeCmd)

	// secrets subcommands
	secretsCmd.AddCommand(secretsKeygenCmd)
	secretsCmd.AddCommand(secretsSealCmd)
	secretsSealCmd.Flags().String("recipient", "", "age recipient (default: the configured identity's)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().Bool("drain", false, "Process queued tasks once and exit")
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(filesCmd)
	filesCmd.Flags().Int64("tag", 0, "Only files linked to this tag id")
	filesCmd.Flags().BoolP("recursive", "r", false, "Include files under descendant tags")
	filesCmd.Flags().Int64P("limit", "n", 50, "Files per page (0 for all)")
	filesCmd.Flags().Int64("page", 1, "Page number, starting at 1")
}
