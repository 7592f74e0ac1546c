package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/resolver"
	"github.com/stwalsh4118/epgcast/internal/timeline"
)

// timelineCmd previews what a client tuning in would be streamed
var timelineCmd = &cobra.Command{
	Use:   "timeline <channel-id>",
	Short: "Print the step plan of a channel",
	Long: `Fetch the guide and print the steps a stream of the channel would play if
it started now: the programme it would join and at which offset, followed by
every later programme and the filler between them. Nothing is streamed.

With --resolve every identifier is also looked up through the search index
and the provider, and the chosen locator is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().String("at", "", "pretend the stream starts at this RFC3339 time")
	timelineCmd.Flags().Bool("resolve", false, "resolve every programme to a locator")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	channelID := args[0]

	now := time.Now().UTC()
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = parsed.UTC()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	g, err := guide.NewFetcher(cfg.FetcherConfig(), nil).Fetch(ctx)
	if err != nil {
		return err
	}
	programmes, err := g.TimelineFor(channelID, now)
	if err != nil {
		return err
	}

	var res *resolver.Chain
	if doResolve, _ := cmd.Flags().GetBool("resolve"); doResolve {
		res = cfg.UpstreamChain()
	}

	return printPlan(ctx, cmd.OutOrStdout(), channelID, now, timeline.Plan(programmes, now), res)
}

func printPlan(ctx context.Context, out io.Writer, channelID string, now time.Time, steps []timeline.Step, res *resolver.Chain) error {
	if _, err := fmt.Fprintf(out, "Channel %s at %s: %d steps\n\n", channelID, now.Format(time.RFC3339), len(steps)); err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := "#\tKIND\tSTART\tSTOP\tOFFSET\tDURATION\tIDENTIFIER\tTITLE"
	if res != nil {
		header += "\tLOCATOR"
	}
	fmt.Fprintln(tw, header)

	for i, step := range steps {
		if step.Kind == timeline.StepGap {
			fmt.Fprintf(tw, "%d\t%s\t\t\t\t%ds\t\t\n", i+1, step.Kind, step.DurationSeconds)
			continue
		}

		p := step.Programme
		identifier, ok := resolver.ExtractIdentifier(p.Description)
		if !ok {
			identifier = "-"
		}
		line := fmt.Sprintf("%d\t%s\t%s\t%s\t%ds\t%ds\t%s\t%s",
			i+1, step.Kind,
			p.Start.Format("15:04"), p.Stop.Format("15:04"),
			step.OffsetSeconds, step.DurationSeconds,
			identifier, p.Title)

		if res != nil {
			locator := "-"
			if ok {
				if src, err := res.Resolve(ctx, identifier); err == nil {
					locator = src.Locator
				} else {
					locator = "unresolved"
				}
			}
			line += "\t" + locator
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}
