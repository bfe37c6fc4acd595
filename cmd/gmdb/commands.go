package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"gmdb/internal/domain"

	"github.com/spf13/cobra"
)

var (
	regionYears   []string
	regionGenders []int
	regionStart   string
	regionEnd     string
	regionSort    string
	resetYes      bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics across every region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			stats, err := svc.Dataset.Statistics(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		})
	},
}

var regionCmd = &cobra.Command{
	Use:   "region <name>",
	Short: "List the accounts of one region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, err := domain.ParseRegion(args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		state, order, err := filterFlags()
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			listing, err := svc.Dataset.Region(ctx, region, state, order)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), listing)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every region by name, crew or role id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, order, err := filterFlags()
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			result, err := svc.Search.Full(ctx, query, state, order)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Run a tracking cycle and print newly seen accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			result, err := svc.Dataset.CheckNewAccounts(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget every known account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed := resetYes
		if !confirmed {
			fmt.Fprint(cmd.OutOrStdout(), "This clears the whole tracking history. Continue? [y/N] ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			confirmed = answer == "y" || answer == "yes"
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			if err := svc.Dataset.ResetHistory(ctx, confirmed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "tracking history cleared")
			return nil
		})
	},
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Print the game server location manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			servers, err := svc.Dataset.Servers(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), servers)
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the maintainer repositories and presence",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, svc services) error {
			out := struct {
				Repos    []domain.RepoData `json:"repos"`
				Presence *domain.Presence  `json:"presence,omitempty"`
			}{Repos: svc.Profile.Repos(ctx)}

			if p, err := svc.Profile.Presence(ctx); err == nil {
				out.Presence = p
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{regionCmd, searchCmd} {
		c.Flags().StringSliceVarP(&regionYears, "year", "y", nil, "Registration years to keep (repeatable)")
		c.Flags().IntSliceVarP(&regionGenders, "gender", "g", nil, "Genders to keep, 0 male 1 female (repeatable)")
		c.Flags().StringVar(&regionStart, "start", "", "Registered on or after (YYYY-MM-DD)")
		c.Flags().StringVar(&regionEnd, "end", "", "Registered on or before (YYYY-MM-DD)")
		c.Flags().StringVarP(&regionSort, "sort", "s", "", "Sort by registration date: asc or desc")
	}
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(statsCmd, regionCmd, searchCmd, newCmd, resetCmd, serversCmd, profileCmd)
}

func filterFlags() (domain.FilterState, domain.SortOrder, error) {
	state := domain.FilterState{Years: regionYears}
	for _, g := range regionGenders {
		if g != domain.GenderMale && g != domain.GenderFemale {
			return state, "", fmt.Errorf("invalid gender %d", g)
		}
		state.Genders = append(state.Genders, g)
	}
	if regionStart != "" {
		t, err := time.Parse(time.DateOnly, regionStart)
		if err != nil {
			return state, "", fmt.Errorf("invalid --start: %w", err)
		}
		state.Start = &t
	}
	if regionEnd != "" {
		t, err := time.Parse(time.DateOnly, regionEnd)
		if err != nil {
			return state, "", fmt.Errorf("invalid --end: %w", err)
		}
		state.End = &t
	}
	order, err := domain.ParseSortOrder(regionSort)
	if err != nil {
		return state, "", err
	}
	return state, order, nil
}
