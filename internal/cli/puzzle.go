package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

const defaultTrack = "marvel"

func newPuzzleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "puzzle",
		Short: "Daily puzzle commands",
	}

	cmd.AddCommand(newPuzzleTodayCmd())
	cmd.AddCommand(newPuzzleStatusCmd())
	cmd.AddCommand(newPuzzleHistoryCmd())

	return cmd
}

func newPuzzleTodayCmd() *cobra.Command {
	var track string

	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's puzzle for a track",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Puzzle

			if err := client.Get(cmd.Context(), puzzlePath(track, ""), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	addTrackFlag(cmd, &track)
	return cmd
}

func newPuzzleStatusCmd() *cobra.Command {
	var track string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show your progress on today's puzzle",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Status

			if err := client.Get(cmd.Context(), puzzlePath(track, "/status"), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	addTrackFlag(cmd, &track)
	return cmd
}

func newPuzzleHistoryCmd() *cobra.Command {
	var track string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your guesses on today's puzzle",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result History

			if err := client.Get(cmd.Context(), puzzlePath(track, "/guesses"), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	addTrackFlag(cmd, &track)
	return cmd
}

func newGuessCmd() *cobra.Command {
	var track string

	cmd := &cobra.Command{
		Use:   "guess <character name>",
		Short: "Guess today's character on a track",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"guess": strings.Join(args, " ")}
			var result GuessResult

			if err := client.Post(cmd.Context(), puzzlePath(track, "/guesses"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	addTrackFlag(cmd, &track)
	return cmd
}

func newStreaksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streaks",
		Short: "Show your streak on every track",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Streaks

			if err := client.Get(cmd.Context(), "/api/v1/players/me/streaks", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show today's progress on every track",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Progress

			if err := client.Get(cmd.Context(), "/api/v1/players/me/progress", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func addTrackFlag(cmd *cobra.Command, track *string) {
	cmd.Flags().StringVarP(track, "track", "t", defaultTrack, "Track: marvel, dc, image")
}

func puzzlePath(track, suffix string) string {
	return fmt.Sprintf("/api/v1/puzzles/%s/today%s", url.PathEscape(track), suffix)
}
