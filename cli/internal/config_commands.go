package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration and contexts",
		Long:  `Manage CLI configuration including API contexts, similar to kubectl contexts.`,
	}

	cmd.AddCommand(newCurrentContextCommand())
	cmd.AddCommand(newUseContextCommand())
	cmd.AddCommand(newListContextsCommand())
	cmd.AddCommand(newAddContextCommand())
	cmd.AddCommand(newDeleteContextCommand())
	cmd.AddCommand(newConfigViewCommand())

	return cmd
}

// current-context command
func newCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Display the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := getCliContext(cmd).Config
			fmt.Fprintln(cmd.OutOrStdout(), config.CurrentContext)
			return nil
		},
	}
}

// use-context command
func newUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use-context CONTEXT_NAME",
		Short: "Switch to a different context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]
			config := getCliContext(cmd).Config

			if err := config.SetCurrentContext(contextName); err != nil {
				return err
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", contextName)
			return nil
		},
	}
}

// list-contexts command
func newListContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list-contexts",
		Aliases: []string{"get-contexts"},
		Short:   "List all available contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := getCliContext(cmd).Config
			out := cmd.OutOrStdout()

			if len(config.Contexts) == 0 {
				fmt.Fprintln(out, "No contexts configured")
				return nil
			}

			names := make([]string, 0, len(config.Contexts))
			for name := range config.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CURRENT\tNAME\tAPI\tTOKEN STORE\tTHEME")

			for _, name := range names {
				ctx := config.Contexts[name]
				current := " "
				if name == config.CurrentContext {
					current = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					current,
					name,
					ctx.API.BaseURL,
					ctx.StoreConfig(name).Backend,
					ctx.Theme(),
				)
			}
			return w.Flush()
		},
	}
}

// add-context command
func newAddContextCommand() *cobra.Command {
	var (
		apiURL      string
		tokenType   string
		pageSize    int
		maxRetries  int
		storeKind   string
		storePath   string
		redisAddr   string
		redisPrefix string
		theme       string
	)

	cmd := &cobra.Command{
		Use:   "add-context CONTEXT_NAME",
		Short: "Add or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]
			config := getCliContext(cmd).Config

			switch storeKind {
			case tokenstore.BackendFile, tokenstore.BackendMemory:
			case tokenstore.BackendRedis:
				if redisAddr == "" {
					return fmt.Errorf("--redis-addr is required with --token-store=redis")
				}
			default:
				return fmt.Errorf("unknown token store %q (want file, memory or redis)", storeKind)
			}

			ctx := NewContext(apiURL)
			if tokenType != "" {
				ctx.API.TokenType = tokenType
			}
			ctx.API.PageSize = pageSize
			ctx.API.MaxRetries = maxRetries
			ctx.TokenStore.Backend = storeKind
			ctx.TokenStore.Path = storePath
			ctx.TokenStore.Redis.Address = redisAddr
			ctx.TokenStore.Redis.Prefix = redisPrefix
			ctx.Rendering.Theme = theme

			config.AddContext(contextName, ctx)

			// If this is the first context, make it current
			if len(config.Contexts) == 1 {
				config.CurrentContext = contextName
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q added/updated\n", contextName)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "Sales API base URL")
	cmd.Flags().StringVar(&tokenType, "token-type", "", "Token type requested from the authorize endpoint")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Sales per page (0 uses the default of 50)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Retries for transient sales request failures")
	cmd.Flags().StringVar(&storeKind, "token-store", tokenstore.BackendFile, "Token store backend (file, memory, redis)")
	cmd.Flags().StringVar(&storePath, "token-file", "", "Token file path for the file backend")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the redis backend")
	cmd.Flags().StringVar(&redisPrefix, "redis-prefix", "", "Redis key prefix for the redis backend")
	cmd.Flags().StringVar(&theme, "theme", "auto", "Rendering theme")
	_ = cmd.MarkFlagRequired("api-url")

	return cmd
}

// delete-context command
func newDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context CONTEXT_NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]
			config := getCliContext(cmd).Config

			if err := config.DeleteContext(contextName); err != nil {
				return err
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", contextName)
			return nil
		},
	}
}

// view command shows the current context
func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "view",
		Aliases: []string{"show"},
		Short:   "Show current context configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := getCliContext(cmd).Config
			out := cmd.OutOrStdout()

			ctx, err := config.GetCurrentContext()
			if err != nil {
				return fmt.Errorf("failed to get current context: %w", err)
			}
			store := ctx.StoreConfig(config.CurrentContext)

			fmt.Fprintf(out, "Current context: %s\n", config.CurrentContext)
			fmt.Fprintf(out, "  API URL: %s\n", ctx.API.BaseURL)
			fmt.Fprintf(out, "  Token Type: %s\n", ctx.API.TokenType)
			fmt.Fprintf(out, "  Token Store: %s\n", store.Backend)
			switch store.Backend {
			case tokenstore.BackendFile:
				fmt.Fprintf(out, "  Token File: %s\n", store.Path)
			case tokenstore.BackendRedis:
				fmt.Fprintf(out, "  Redis: %s (prefix %s)\n", store.Redis.Address, store.Redis.Prefix)
			}
			fmt.Fprintf(out, "  Glamour Theme: %s\n", ctx.Theme())

			configPath, _ := GetConfigPath()
			fmt.Fprintf(out, "  Config File: %s\n", configPath)

			return nil
		},
	}
}
