package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	internal_http "github.com/ArnovZ080/guildboard/internal/http"
	"github.com/ArnovZ080/guildboard/internal/log"
	internal_storage "github.com/ArnovZ080/guildboard/internal/storage"
	"github.com/ArnovZ080/guildboard/pkg/celebrate"
	"github.com/ArnovZ080/guildboard/pkg/client"
	"github.com/ArnovZ080/guildboard/pkg/layout"
	"github.com/ArnovZ080/guildboard/pkg/mode"
	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/nav"
	"github.com/ArnovZ080/guildboard/pkg/poller"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/spf13/cobra"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the guildboard API server",
		Run: func(cmd *cobra.Command, args []string) {
			port, _ := cmd.Flags().GetString("port")
			dbConnStr, _ := cmd.Flags().GetString("db")

			var store storage.Store
			if dbConnStr == "" {
				log.GetLogger().Info("No --db given, serving from the in-memory store")
				store = storage.NewMockStore()
			} else {
				pgStore, err := internal_storage.InitStore(dbConnStr)
				if err != nil {
					log.GetLogger().Errorf("Failed to initialize store: %v", err)
					os.Exit(1)
				}
				defer pgStore.Close()
				store = pgStore
			}

			if err := internal_http.StartServer(port, store); err != nil {
				log.GetLogger().Errorf("Server failed: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "8080", "Port to listen on")
	serveCmd.Flags().String("db", "", "Postgres connection string (in-memory store when empty)")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow contract",
		Run: func(cmd *cobra.Command, args []string) {
			name, _ := cmd.Flags().GetString("name")
			objective, _ := cmd.Flags().GetString("objective")
			if name == "" {
				fmt.Fprintln(os.Stderr, "Error: --name is required")
				os.Exit(1)
			}
			c := apiClient(cmd)
			resp, err := c.CreateContract(cmd.Context(), client.CreateContractRequest{Name: name, Objective: objective})
			if err != nil {
				log.GetLogger().Errorf("Failed to create workflow contract: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to create workflow contract: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Created workflow contract '%s' with ID %d\n", name, resp.ID)
			for _, t := range resp.WorkflowDefinition.Tasks {
				deps := "none"
				if len(t.Dependencies) > 0 {
					deps = strings.Join(t.Dependencies, ", ")
				}
				fmt.Fprintf(os.Stdout, "  - %s (%s), depends on: %s\n", t.TaskID, t.Agent, deps)
			}
		},
	}
	createCmd.Flags().String("name", "", "Workflow name")
	createCmd.Flags().String("objective", "", "What the workflow should achieve")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		Run: func(cmd *cobra.Command, args []string) {
			c := apiClient(cmd)
			workflows, err := c.ListWorkflows(cmd.Context())
			if err != nil {
				log.GetLogger().Errorf("Failed to list workflows: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to list workflows: %v\n", err)
				os.Exit(1)
			}
			if len(workflows) == 0 {
				fmt.Fprintln(os.Stdout, "No workflows found.")
				return
			}
			fmt.Fprintln(os.Stdout, "Workflows:")
			for _, wf := range workflows {
				fmt.Fprintf(os.Stdout, "- ID: %d, Name: %s, Status: %s, Progress: %.0f%%, Created: %s\n",
					wf.ID, wf.Name, wf.Status, wf.Progress*100, wf.CreatedAt.Format(time.RFC3339))
			}
		},
	}

	approveCmd := &cobra.Command{
		Use:   "approve [id]",
		Short: "Approve a workflow contract",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			c := apiClient(cmd)
			if err := c.ApproveWorkflow(cmd.Context(), id); err != nil {
				log.GetLogger().Errorf("Failed to approve workflow: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to approve workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Approved workflow %d\n", id)
		},
	}

	executeCmd := &cobra.Command{
		Use:   "execute [id]",
		Short: "Execute an approved workflow",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			c := apiClient(cmd)
			if err := c.ExecuteWorkflow(cmd.Context(), id); err != nil {
				log.GetLogger().Errorf("Failed to execute workflow: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to execute workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Executed workflow %d\n", id)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch [id]",
		Short: "Poll a workflow's status until interrupted",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := parseID(args[0])
			interval, _ := cmd.Flags().GetDuration("interval")

			c := apiClient(cmd)
			current := mode.Derive(time.Now().Hour())
			fmt.Fprintf(os.Stdout, "%s — watching workflow %d (every %s)\n", current.Label(), id, interval)

			p := poller.New(c, log.GetLogger())
			sub := p.Watch(id, interval)
			defer sub.Stop()

			notifier := celebrate.NewNotifier(celebrate.WithChangeListener(func(active []celebrate.Celebration) {
				for _, cel := range active {
					fmt.Fprintf(os.Stdout, "🎉 %s\n", cel.Message)
				}
			}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(os.Stdout, "Stopped watching.")
					return
				case snap := <-sub.Updates():
					printSnapshot(snap)
					if snap.State != poller.StateReady || snap.Stale {
						continue
					}
					switch snap.Report.Status {
					case models.CompletedWorkflowStatus:
						notifier.Trigger(celebrate.WorkflowComplete)
						return
					case models.FailedWorkflowStatus:
						return
					}
				}
			}
		},
	}
	watchCmd.Flags().Duration("interval", poller.DefaultInterval, "Poll interval")

	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print suggested navigation items for the current (or given) mode",
		Run: func(cmd *cobra.Command, args []string) {
			modeFlag, _ := cmd.Flags().GetString("mode")
			navConfig, _ := cmd.Flags().GetString("nav-config")

			current := mode.Derive(time.Now().Hour())
			if modeFlag != "" {
				m, err := mode.Parse(modeFlag)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				current = m
			}

			registry := nav.DefaultRegistry()
			var strategy nav.Strategy = nav.DefaultStrategy()
			if navConfig != "" {
				cfg, err := nav.LoadConfig(navConfig)
				if err != nil {
					log.GetLogger().Errorf("Failed to load nav config: %v", err)
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				registry, err = cfg.Registry()
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				strategy, err = cfg.Strategy()
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
			}

			fmt.Fprintf(os.Stdout, "%s — suggested items:\n", current.Label())
			for _, it := range registry.Suggested(strategy, current) {
				fmt.Fprintf(os.Stdout, "- %s (%s): %s\n", it.Label, it.Category, it.Description)
			}
		},
	}
	suggestCmd.Flags().String("mode", "", "Override the derived mode (morning, active, evening)")
	suggestCmd.Flags().String("nav-config", "", "YAML file with navigation items and suggestions")

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "guildboard server URL")
	rootCmd.AddCommand(serveCmd, createCmd, listCmd, approveCmd, executeCmd, watchCmd, suggestCmd)
}

func apiClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	return client.New(server)
}

func parseID(arg string) int64 {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "id="), 10, 64)
	if err != nil {
		log.GetLogger().Errorf("Error parsing id as number: %v", err)
		fmt.Fprintf(os.Stderr, "Error parsing id as number: %v\n", err)
		os.Exit(1)
	}
	return id
}

func printSnapshot(snap poller.Snapshot) {
	switch snap.State {
	case poller.StateError:
		fmt.Fprintf(os.Stdout, "[workflow %d] error: %v\n", snap.WorkflowID, snap.Err)
		return
	case poller.StateLoading:
		fmt.Fprintf(os.Stdout, "[workflow %d] loading...\n", snap.WorkflowID)
		return
	}

	staleNote := ""
	if snap.Stale {
		staleNote = fmt.Sprintf(" (stale: %v)", snap.Err)
	}
	fmt.Fprintf(os.Stdout, "[workflow %d] %s %.0f%%%s\n",
		snap.WorkflowID, snap.Report.Status, snap.Report.Progress*100, staleNote)

	rows, err := layout.Levels(snap.Report.DAG.Nodes)
	if err != nil {
		fmt.Fprintf(os.Stdout, "  (unrenderable DAG: %v)\n", err)
		return
	}
	for _, row := range rows {
		var cells []string
		for _, n := range row {
			cells = append(cells, fmt.Sprintf("%s[%s]", n.ID, n.Status))
		}
		fmt.Fprintf(os.Stdout, "  %s\n", strings.Join(cells, "  "))
	}
}
