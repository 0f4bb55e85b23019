package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/calendar"
	"github.com/bigislandtech/meetup-sync/internal/event"
	"github.com/bigislandtech/meetup-sync/internal/filter"
	"github.com/spf13/cobra"
)

var (
	flagListFormat string
	flagListSort   string
	flagPast       bool
	flagUpcoming   bool
	flagWhen       string
	flagTitles     []string
	flagLocations  []string
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the events in the dataset",
		Long: `Print the events in the dataset. Cancelled events and events whose date has
passed are listed as past; a status set by hand always wins over the date.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().BoolVar(&flagPast, "past", false, "Only past and cancelled events, most recent first")
	cmd.Flags().BoolVar(&flagUpcoming, "upcoming", false, "Only upcoming events, soonest first")
	cmd.Flags().StringVar(&flagListFormat, "format", "text", "Output format: text, json or ics")
	cmd.Flags().StringVar(&flagListSort, "sort", "", "Sort order: date, title or id (default: by category)")
	cmd.Flags().StringVar(&flagWhen, "when", "", "Date range, e.g. 'Mar 1-15', 'March' or '2026-03-01..2026-03-31'")
	cmd.Flags().StringSliceVar(&flagTitles, "title", nil, "Only events whose title contains this text (repeatable)")
	cmd.Flags().StringSliceVar(&flagLocations, "location", nil, "Only events whose location contains this text (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("past", "upcoming")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagListFormat))
	if format != FormatText && format != FormatJSON && format != FormatICS {
		return fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", flagListFormat)
	}
	order := SortOrder(strings.ToLower(flagListSort))
	if order != "" && order != SortByDate && order != SortByTitle && order != SortByID {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'title' or 'id')", flagListSort)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg)

	today := time.Now().In(loc)
	f := filter.New()
	f.Titles = flagTitles
	f.Locations = flagLocations
	if flagWhen != "" {
		if f.DateFrom, f.DateTo, err = filter.ParseDateRange(flagWhen, today); err != nil {
			return err
		}
	}

	events, report, err := datasetStore(cfg).Load()
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}

	if flagVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d events from %s (%s)\n", report.Loaded, report.Path, report.Format)
		if report.Dropped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d records that could not be parsed or have no id\n", report.Dropped)
		}
	}

	if flagVerbose && !f.IsEmpty() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Filter: %s\n", f)
	}
	events = f.Apply(events)

	label := "events"
	switch {
	case flagUpcoming:
		events = event.Upcoming(events, today)
		label = "upcoming events"
	case flagPast:
		events = event.Past(events, today)
		label = "past events"
	default:
		events = append(event.Upcoming(events, today), event.Past(events, today)...)
	}
	if order != "" {
		sortEvents(events, order)
	}

	return WriteEvents(cmd.OutOrStdout(), &EventsResult{
		Label:  label,
		Events: events,
		Today:  today,
	}, format, flagVerbose, calendar.Options{
		Name:            cfg.Source.Group,
		Location:        loc,
		DefaultDuration: cfg.Extract.DefaultDuration,
	})
}
