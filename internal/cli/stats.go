package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"quiz-bot/internal/app"
	"quiz-bot/internal/config"
	"quiz-bot/internal/domain"
)

// NewStatsCmd prints aggregate results read from the configured backend.
func NewStatsCmd(configPath *string) *cobra.Command {
	var perUser bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print participant count and mean score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			c := &components{}
			defer c.close()
			if err := buildResults(cmd.Context(), cfg, cat, log, c); err != nil {
				return err
			}

			results, err := c.results.ReadAll(cmd.Context())
			if errors.Is(err, domain.ErrResultsUnavailable) {
				log.Warn("results unavailable, reporting empty stats", "err", err)
				results, err = domain.NewResults(), nil
			}
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), results, cat.Len(), perUser)
			return nil
		},
	}
	cmd.Flags().BoolVar(&perUser, "users", false, "list every user's score")
	return cmd
}

func printStats(w io.Writer, results domain.Results, questions int, perUser bool) {
	stats := app.Aggregate(results.Totals)
	bold := color.New(color.Bold)
	if !stats.HasParticipants() {
		bold.Fprintln(w, "No participants yet")
		return
	}
	bold.Fprintf(w, "Participants: %d\n", stats.ParticipantCount)
	bold.Fprintf(w, "Mean score:   %.2f / %d\n", stats.MeanScore, questions)
	if !perUser {
		return
	}

	users := make([]string, 0, len(results.Totals))
	for u := range results.Totals {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if results.Totals[users[i]] != results.Totals[users[j]] {
			return results.Totals[users[i]] > results.Totals[users[j]]
		}
		return users[i] < users[j]
	})
	for _, u := range users {
		fmt.Fprintf(w, "  %-20s %d\n", u, results.Totals[u])
	}
}
