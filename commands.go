package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lddmodder/brickedit/pkg/project"
)

// cli holds state shared by the commands of one invocation.
type cli struct {
	configFile string
	logLevel   string
	lddPath    string

	app *App
}

// NewRootCmd builds the brickedit command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "brickedit",
		Short:         "Create, inspect and edit LDD part projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setup()
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./brickedit.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level, overrides log_level")
	root.PersistentFlags().StringVar(&c.lddPath, "ldd-path", "", "LDD installation, overrides ldd_path")

	root.AddCommand(
		c.newNewCmd(),
		c.newImportCmd(),
		c.newInfoCmd(),
		c.newValidateCmd(),
		c.newExtractCmd(),
		c.newPackCmd(),
		c.newScriptCmd(),
		c.newCollisionsCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := LoadConfig(c.configFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.lddPath != "" {
		cfg.LDDPath = c.lddPath
	}
	log, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	c.app = NewApp(cfg, log)
	return nil
}

// run wraps a command body so the App is closed even when the body fails.
func (c *cli) run(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		return errors.Join(err, c.teardown())
	}
}

func (c *cli) teardown() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	_ = c.app.log.Sync()
	c.app = nil
	return err
}

// ----------------------------------------------------------------------------
// Commands
// ----------------------------------------------------------------------------

func (c *cli) newNewCmd() *cobra.Command {
	var (
		partID      int
		description string
	)
	cmd := &cobra.Command{
		Use:   "new <output>",
		Short: "Create an empty part project",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			c.app.NewProject(partID, description)
			if err := c.app.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().IntVar(&partID, "part-id", 0, "design ID of the new part")
	cmd.Flags().StringVar(&description, "description", "", "part description")
	return cmd
}

func (c *cli) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <part-id> <output>",
		Short: "Create a project from a part of the LDD installation",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			partID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid part ID %q", args[0])
			}
			if _, err := c.app.ImportPart(partID); err != nil {
				return err
			}
			if err := c.app.Save(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported part %d into %s\n", partID, args[1])
			return nil
		}),
	}
}

func (c *cli) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <project>",
		Short: "Print a project summary as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Open(args[0]); err != nil {
				return err
			}
			info, err := c.app.Info()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(info); err != nil {
				return err
			}
			return enc.Close()
		}),
	}
}

// errValidationFailed is returned by validate when a finding is an error.
var errValidationFailed = errors.New("validation failed")

func (c *cli) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <project>",
		Short: "Check a project for problems",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Open(args[0]); err != nil {
				return err
			}
			msgs, err := c.app.Validate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range msgs {
				fmt.Fprintln(out, m.Error())
			}
			if project.HasErrors(msgs) {
				return errValidationFailed
			}
			fmt.Fprintf(out, "%s: ok (%d findings)\n", args[0], len(msgs))
			return nil
		}),
	}
}

func (c *cli) newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <archive> <dir>",
		Short: "Unpack a project archive into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Open(args[0]); err != nil {
				return err
			}
			return c.app.Extract(args[1])
		}),
	}
}

func (c *cli) newPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <dir> <output>",
		Short: "Pack an extracted project directory into an archive",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Open(args[0]); err != nil {
				return err
			}
			return c.app.Save(args[1])
		}),
	}
}

func (c *cli) newScriptCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "script <project> <script>",
		Short: "Apply a part macro to a project",
		Long: `Evaluates a part macro and applies its edits to the project.

Without --output an archive is rewritten in place and a project directory
gets a new manifest.`,
		Args: cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			p, err := c.app.Open(args[0])
			if err != nil {
				return err
			}
			edits, err := c.app.RunScript(string(source))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range edits {
				fmt.Fprintln(out, e)
			}

			switch {
			case output != "":
				return c.app.Save(output)
			case p.ProjectPath != "":
				return c.app.Save(p.ProjectPath)
			default:
				return c.app.Editor().SaveWorkingProject()
			}
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this archive")
	return cmd
}

func (c *cli) newCollisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collisions <project> <dir>",
		Short: "Tessellate collision volumes into preview meshes",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Open(args[0]); err != nil {
				return err
			}
			paths, err := c.app.WriteCollisions(args[1])
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		}),
	}
}
