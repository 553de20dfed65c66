package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	baselinemanager "github.com/s3studio/baseline-manager"
	"github.com/s3studio/baseline-manager/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "show [conf|ui]",
		Short:     "Print the configuration or UI state as JSON",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"conf", "ui"},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "conf"
			if len(args) == 1 {
				which = args[0]
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				switch which {
				case "conf":
					return writeJSON(cmd.OutOrStdout(), inst.Editor().Conf())
				case "ui":
					return writeJSON(cmd.OutOrStdout(), inst.Editor().UI())
				default:
					return fmt.Errorf("unknown store %q, want conf or ui", which)
				}
			})
		},
	}
}

func newResetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [conf|ui]",
		Short: "Restore a store to its defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				switch args[0] {
				case "conf":
					return inst.Editor().ResetConf(ctx)
				case "ui":
					return inst.Editor().ResetUI(ctx)
				default:
					return fmt.Errorf("unknown store %q, want conf or ui", args[0])
				}
			})
		},
	}
}

func newUICommand(a *app) *cobra.Command {
	ui := &cobra.Command{
		Use:   "ui",
		Short: "Edit editor preferences",
	}
	ui.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a preference (" + strings.Join(domain.UIFields, ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				return inst.Editor().SetUI(ctx, args[0], args[1])
			})
		},
	})
	return ui
}

func newOptionCommand(a *app) *cobra.Command {
	option := &cobra.Command{
		Use:   "option",
		Short: "Edit output options",
	}
	option.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set an output option",
		Long:  "Set an output option. output_metadata takes a comma separated list.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				return inst.Editor().SetOption(ctx, args[0], args[1])
			})
		},
	})
	return option
}

func newProfileCommand(a *app) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Edit provider profiles",
	}
	profile.AddCommand(
		&cobra.Command{
			Use:   "set <provider> <value>",
			Short: "Set the profile of a provider",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
					return inst.Editor().SetProfile(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "unset <provider>",
			Short: "Remove the profile of a provider",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
					return inst.Editor().UnsetProfile(ctx, args[0])
				})
			},
		},
	)
	return profile
}

func newListorCommand(a *app) *cobra.Command {
	listor := &cobra.Command{
		Use:   "listor",
		Short: "Edit resource listors",
	}

	var l domain.Listor
	var cloudType string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a listor and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l.CloudType = domain.CloudType(cloudType)
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				added, err := inst.Editor().AddListor(ctx, l)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), added.ID)
				return err
			})
		},
	}
	add.Flags().StringVar(&cloudType, "cloud-type", "", "cloud type of the listor")
	add.Flags().StringVar(&l.RsType, "rs-type", "", "resource type to enumerate")
	add.Flags().StringVar(&l.RawConf, "raw-conf", "", "extra YAML configuration")
	_ = add.MarkFlagRequired("cloud-type")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a listor",
		Long:  "Remove a listor. With deleteBaselineWithListor set, baselines that check it are removed too.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("listor id: %w", err)
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				removed, err := inst.Editor().RemoveListor(ctx, id)
				if err != nil {
					return err
				}
				if len(removed) > 0 {
					a.log.Info().Ints("baselines", removed).Msg("removed baselines with listor")
				}
				return nil
			})
		},
	}

	listor.AddCommand(add, rm)
	return listor
}

// parseChecker parses "<cloud_type>[:<listor id>,...]".
func parseChecker(s string) (domain.Checker, error) {
	cloud, ids, _ := strings.Cut(s, ":")
	c := domain.Checker{CloudType: domain.CloudType(cloud), Listor: []int{}}
	if ids == "" {
		return c, nil
	}
	for _, part := range strings.Split(ids, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return c, fmt.Errorf("checker %q: %w", s, err)
		}
		c.Listor = append(c.Listor, id)
	}
	return c, nil
}

func newBaselineCommand(a *app) *cobra.Command {
	baseline := &cobra.Command{
		Use:   "baseline",
		Short: "Edit baselines",
	}

	var (
		tags     []string
		metadata map[string]string
		checkers []string
		rawConf  string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a baseline and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := domain.Baseline{Tag: tags, Metadata: metadata, RawConf: rawConf}
			for _, s := range checkers {
				c, err := parseChecker(s)
				if err != nil {
					return err
				}
				b.Checker = append(b.Checker, c)
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				added, err := inst.Editor().AddBaseline(ctx, b)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), added.ID)
				return err
			})
		},
	}
	add.Flags().StringSliceVar(&tags, "tag", nil, "baseline tag (repeatable)")
	add.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value (repeatable)")
	add.Flags().StringArrayVar(&checkers, "checker", nil, "checker as cloud_type[:listor,...] (repeatable)")
	add.Flags().StringVar(&rawConf, "raw-conf", "", "extra YAML configuration")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("baseline id: %w", err)
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				return inst.Editor().RemoveBaseline(ctx, id)
			})
		},
	}

	baseline.AddCommand(add, rm)
	return baseline
}

func newExportCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configuration as checker YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				data, err := inst.Editor().ExportYAML()
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the configuration with checker YAML",
		Long:  "Replace the configuration with checker YAML. Locked options and profiles are kept. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *baselinemanager.Instance) error {
				return inst.Editor().ImportYAML(ctx, data)
			})
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow slot changes made by other processes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inst, err := a.open(ctx, true)
			if err != nil {
				return err
			}
			defer inst.Close()

			unsubConf := inst.Conf().Subscribe(func(prev, cur domain.ConfigurationState) {
				a.log.Info().
					Int("listors", len(cur.Listor)).
					Int("baselines", len(cur.Baseline)).
					Msg("configuration changed")
			})
			defer unsubConf()
			unsubUI := inst.UI().Subscribe(func(prev, cur domain.UIState) {
				a.log.Info().Interface("ui", cur).Msg("preferences changed")
			})
			defer unsubUI()

			if err := inst.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			a.log.Info().Str("dir", a.cfg.StorageDir).Msg("watching slots")

			<-ctx.Done()
			a.log.Info().Msg("received signal, stopping...")
			return inst.Stop(context.Background())
		},
	}
	cmd.Flags().DurationVar(&a.cfg.WatchDebounce, "debounce", a.cfg.WatchDebounce, "delay between a slot change and the reload")
	return cmd
}
