// cmd/cnrewrite/commands.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/colebrumley/cnrewrite/internal/config"
	"github.com/colebrumley/cnrewrite/internal/customization"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/colebrumley/cnrewrite/internal/template"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "cnrewrite",
		Short: "Client name rewrite rules for remote desktop sessions",
		Long: `cnrewrite evaluates client name rewrite rules against client contexts
and manages the configuration used by the cnrewrited daemon.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", configPathFromEnv(), "config file path")

	root.AddCommand(
		newInitCmd(&configPath),
		newValidateCmd(&configPath),
		newRewriteCmd(&configPath),
		newTokensCmd(),
		newStatusCmd(&configPath),
	)
	return root
}

func newInitCmd(configPath *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(*configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", *configPath)
			}
			if err := config.Save(*configPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", *configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [rule]",
		Short: "Validate a rule, or the configured rule and config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var rule string
			if len(args) == 1 {
				rule = args[0]
			} else {
				cfg, err := config.LoadGlobal(*configPath)
				if err != nil {
					return err
				}
				if err := config.Validate(cfg); err != nil {
					return fmt.Errorf("invalid config %s: %w", *configPath, err)
				}
				configured, ok := cfg.Rule()
				if !ok {
					return fmt.Errorf("%w (setting absent)", rewrite.ErrNoRule)
				}
				rule = configured
			}

			if err := rewrite.Validate(rule); err != nil {
				return err
			}

			for _, letter := range template.Letters(rule) {
				if !rewrite.IsDirective(letter) {
					fmt.Fprintf(out, "warning: unknown token %c%c is copied literally\n", template.Marker, letter)
				}
			}
			fmt.Fprintf(out, "Rule %q is valid\n", rule)
			return nil
		},
	}
}

// rewriteOutput is printed by the rewrite command.
type rewriteOutput struct {
	DeviceInfo customization.DeviceInfo `json:"device_info"`
	rewrite.Result
}

func newRewriteCmd(configPath *string) *cobra.Command {
	var contextPath string
	var rule string

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Evaluate the rule against a client context read from JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readContext(cmd.InOrStdin(), contextPath)
			if err != nil {
				return err
			}

			var rules rewrite.RuleProvider
			if cmd.Flags().Changed("rule") {
				rules = rewrite.Static(rule)
			} else {
				cfg, err := config.LoadGlobal(*configPath)
				if err != nil {
					return err
				}
				rules = cfg
			}

			device, res := rewrite.New(rules, nil).Modify(c)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rewriteOutput{DeviceInfo: device, Result: res})
		},
	}
	cmd.Flags().StringVar(&contextPath, "context", "-", "client context JSON file, - for stdin")
	cmd.Flags().StringVar(&rule, "rule", "", "rule to evaluate instead of the configured one")
	return cmd
}

func readContext(stdin io.Reader, path string) (customization.Context, error) {
	var c customization.Context

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return c, fmt.Errorf("opening context file: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("decoding context: %w", err)
	}
	return c, nil
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the supported rule tokens",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tVALUE")
			for _, d := range rewrite.Directives {
				fmt.Fprintf(tw, "%c%c\t%s\n", template.Marker, d.Letter, d.Description)
			}
			tw.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\nIllegal characters: %s\nResults are truncated to %d characters.\n",
				rewrite.IllegalChars, rewrite.MaxClientNameLength)
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and rewrite counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadGlobal(*configPath)
			if err != nil {
				return err
			}
			base := "http://" + net.JoinHostPort(cfg.Server.ListenAddress, strconv.Itoa(cfg.Server.ListenPort))
			client := &http.Client{Timeout: 5 * time.Second}

			out := cmd.OutOrStdout()
			for _, path := range []string{"/health", "/api/stats"} {
				body, err := get(client, base+path)
				if err != nil {
					fmt.Fprintln(out, "Daemon is not running")
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", path, strings.TrimSpace(string(body)))
			}
			return nil
		},
	}
}

func get(client *http.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return body, nil
}
