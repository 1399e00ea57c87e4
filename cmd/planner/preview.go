package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
)

var (
	previewStart    string
	previewEnd      string
	previewDays     []int
	previewHolidays []string
	previewChapters []string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the lessons a schedule would produce without touching the database",
	Example: `  planner preview --start 2024-01-01 --end 2024-01-12 --days 1,3 \
    --chapters "Cells,Genetics,Evolution" --holidays 2024-01-08`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := previewConfig()
		if err != nil {
			return err
		}

		days := schedule.TeachingDays(cfg)
		if len(days) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no teaching days fall within the requested range")
			return nil
		}

		chapters := make([]model.Chapter, 0, len(previewChapters))
		for _, title := range previewChapters {
			chapters = append(chapters, model.Chapter{Title: title})
		}
		lessons := schedule.Distribute(0, days, chapters, cfg.WeeklyFrequency())

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tDATE\tDAY\tWEEK\tTITLE")
		for i, lesson := range lessons {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1,
				lesson.ScheduledDate.Format(schedule.DateLayout),
				lesson.ScheduledDate.Weekday().String()[:3],
				lesson.WeekNumber, lesson.Title)
		}
		return tw.Flush()
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewStart, "start", "", "first date, YYYY-MM-DD")
	previewCmd.Flags().StringVar(&previewEnd, "end", "", "last date, YYYY-MM-DD")
	previewCmd.Flags().IntSliceVar(&previewDays, "days", []int{1, 2, 3, 4, 5}, "weekdays to teach on, 0 = Sunday")
	previewCmd.Flags().StringSliceVar(&previewHolidays, "holidays", nil, "dates to skip, YYYY-MM-DD")
	previewCmd.Flags().StringSliceVar(&previewChapters, "chapters", nil, "chapter titles in teaching order")
	_ = previewCmd.MarkFlagRequired("start")
	_ = previewCmd.MarkFlagRequired("end")
}

func previewConfig() (schedule.Config, error) {
	start, err := schedule.ParseDate(previewStart)
	if err != nil {
		return schedule.Config{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := schedule.ParseDate(previewEnd)
	if err != nil {
		return schedule.Config{}, fmt.Errorf("invalid --end: %w", err)
	}

	cfg := schedule.Config{
		StartDate: start,
		EndDate:   end,
		Weekdays:  schedule.ParseWeekdays(previewDays),
	}
	for _, h := range previewHolidays {
		day, err := schedule.ParseDate(h)
		if err != nil {
			return schedule.Config{}, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		cfg.Holidays = append(cfg.Holidays, day)
	}
	return cfg, nil
}
