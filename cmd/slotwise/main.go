package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/slotwise/calendar"
	"github.com/hrygo/slotwise/internal/profile"
	"github.com/hrygo/slotwise/monitor"
	"github.com/hrygo/slotwise/plugin/taskgraph"
	"github.com/hrygo/slotwise/plugin/tzlookup"
	"github.com/hrygo/slotwise/reminder"
	"github.com/hrygo/slotwise/schedule"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "slotwise",
	Short: "Calendar-aware slot search and task-chain planning",
	Long: `slotwise finds open meeting slots across timezones, surfaces short
conflicts that might be movable, and plans preparation task chains around a
primary event. It can also monitor a calendar and book prep blocks
automatically.`,
	SilenceUsage: true,
}

func newProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Version: version,
	}
	p.FromEnv()
	if zone := viper.GetString("viewer-zone"); zone != "" {
		p.ViewerZone = zone
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// newResolver builds the timezone resolver, LLM-backed when configured.
func newResolver(p *profile.Profile) *tzlookup.Resolver {
	var backend tzlookup.Backend
	if p.IsAIEnabled() {
		backend = tzlookup.NewLLMBackend(tzlookup.LLMConfig{
			APIKey:  p.AIAPIKey,
			BaseURL: p.AIBaseURL,
			Model:   p.AIModel,
		})
	}
	return tzlookup.NewResolver(backend)
}

func newParser(p *profile.Profile, resolver *tzlookup.Resolver) *taskgraph.Parser {
	cfg := taskgraph.Config{}
	if p.IsAIEnabled() {
		cfg = taskgraph.Config{
			APIKey:  p.AIAPIKey,
			BaseURL: p.AIBaseURL,
			Model:   p.AIModel,
		}
	}
	return taskgraph.NewParser(cfg, resolver)
}

// newCalendar picks the event and busy-interval source: an ICS feed when
// configured, otherwise an in-memory calendar (seeded with demo fixtures in
// demo mode). The memory calendar is always returned as the write side;
// ICS feeds are read-only.
func newCalendar(p *profile.Profile) (calendar.EventSource, schedule.BusyIntervalProvider, *calendar.MemoryCalendar) {
	mem := calendar.NewMemoryCalendar()
	if p.Mode == "demo" {
		seedDemoEvents(mem)
	}
	if p.ICSFeedURL != "" {
		ics := calendar.NewICSProvider(p.ICSFeedURL)
		return ics, ics, mem
	}
	return mem, mem, mem
}

func seedDemoEvents(mem *calendar.MemoryCalendar) {
	now := time.Now()
	nextAt := func(days, hour int) time.Time {
		d := now.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
	}
	mem.Seed(calendar.Event{
		Title:    "Team standup",
		Interval: schedule.Interval{Start: nextAt(1, 10), End: nextAt(1, 10).Add(30 * time.Minute)},
	})
	mem.Seed(calendar.Event{
		Title:       "Interview with platform team",
		Description: "systems design round",
		Interval:    schedule.Interval{Start: nextAt(4, 14), End: nextAt(4, 15)},
	})
	mem.Seed(calendar.Event{
		Title:    "Quarterly planning",
		Interval: schedule.Interval{Start: nextAt(2, 9), End: nextAt(2, 16)},
	})
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find open meeting slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProfile()
		if err != nil {
			return err
		}
		resolver := newResolver(p)
		_, provider, _ := newCalendar(p)
		ctx := cmd.Context()

		duration := time.Duration(viper.GetInt("search.duration")) * time.Minute
		days := viper.GetInt("search.days")
		if days <= 0 {
			days = schedule.DefaultSearchWindowDays
		}

		targetZone := resolver.Location(ctx, viper.GetString("search.zone"))
		viewerZone := resolver.Location(ctx, p.ViewerZone)

		now := time.Now()
		windowEnd := now.AddDate(0, 0, days)

		busy, err := provider.ListBusy(ctx, now, windowEnd)
		if err != nil {
			return err
		}

		policy := schedule.SearchPolicy{
			Duration:      duration,
			WindowStart:   now,
			WindowEnd:     windowEnd,
			TargetZone:    targetZone,
			ViewerZone:    viewerZone,
			SpecificDates: viper.GetStringSlice("search.dates"),
		}
		for _, d := range viper.GetStringSlice("search.exclude-dates") {
			if policy.ExcludedDates == nil {
				policy.ExcludedDates = map[string]bool{}
			}
			policy.ExcludedDates[d] = true
		}

		result := schedule.NewSearcher().Search(policy, schedule.NewBusySet(busy))
		printSearchResult(result, duration, now, windowEnd)
		return nil
	},
}

func printSearchResult(result schedule.SearchResult, duration time.Duration, windowStart, windowEnd time.Time) {
	if len(result.Available) == 0 && len(result.ConflictPossible) == 0 {
		fmt.Println("No open slots in the search window.")
		return
	}

	if len(result.Available) > 0 {
		fmt.Printf("Available slots (%s each):\n", duration)
		for _, slot := range result.Available {
			marker := ""
			if !slot.Reasonable {
				marker = "  (outside waking hours for you)"
			}
			fmt.Printf("  %s  |  your time %s%s\n",
				slot.Target.Start.Format("Mon 2006-01-02 15:04 MST"),
				slot.Viewer.Start.Format("Mon 15:04 MST"),
				marker)
		}
	}

	if len(result.ConflictPossible) > 0 {
		fmt.Println("\nSlots blocked by short events (might be movable):")
		for _, rec := range result.ConflictPossible {
			fmt.Printf("  %s  -- conflicts with %s-%s (%s)\n",
				rec.Slot.Target.Start.Format("Mon 2006-01-02 15:04"),
				rec.ConflictingWith.Start.Format("15:04"),
				rec.ConflictingWith.End.Format("15:04"),
				rec.Note)
		}

		advisor := schedule.NewAdvisor()
		resolutions := advisor.Suggest(result.ConflictPossible, duration, windowStart, windowEnd)
		if len(resolutions) > 0 {
			fmt.Println("\nAlternatives around those conflicts:")
			for _, res := range resolutions {
				fmt.Printf("  %s  -- %s\n",
					res.Slot.Target.Start.Format("Mon 2006-01-02 15:04"),
					res.Note)
			}
		}
	}
}

var planCmd = &cobra.Command{
	Use:   "plan [request]",
	Short: "Plan a task chain from a natural-language request",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProfile()
		if err != nil {
			return err
		}
		resolver := newResolver(p)
		parser := newParser(p, resolver)
		_, provider, _ := newCalendar(p)
		ctx := cmd.Context()

		request := strings.Join(args, " ")
		chain, err := parser.Parse(ctx, request)
		if err != nil {
			return err
		}

		viewerZone := resolver.Location(ctx, p.ViewerZone)
		planner := schedule.NewPlanner(provider, schedule.WithViewerZone(viewerZone))

		suggestions, err := planner.Plan(ctx, chain, viper.GetInt("plan.days"))
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			fmt.Println("No fully satisfiable schedule found for that chain.")
			return nil
		}

		fmt.Printf("Suggestions for %q:\n", chain.Primary.Description)
		for i, s := range suggestions {
			fmt.Printf("\n%d. %s - %s\n", i+1,
				s.PrimarySlot.Start.Format("Mon 2006-01-02 15:04 MST"),
				s.PrimarySlot.End.Format("15:04"))
			for _, dep := range s.Dependents {
				fmt.Printf("   %s: %s - %s (%s)\n", dep.Description,
					dep.Slot.Start.Format("Mon 2006-01-02 15:04"),
					dep.Slot.End.Format("15:04"),
					dep.Zone)
			}
		}
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the calendar and book prep blocks for upcoming events",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProfile()
		if err != nil {
			return err
		}
		resolver := newResolver(p)
		parser := newParser(p, resolver)
		source, provider, mem := newCalendar(p)

		// ICS feeds cannot be written back; the processed-event store
		// alone prevents reprocessing there.
		var marker monitor.EventMarker
		if p.ICSFeedURL == "" {
			marker = mem
		}

		m := monitor.New(monitor.Config{
			Source:        source,
			Busy:          provider,
			Sink:          mem,
			Marker:        marker,
			Parser:        parser,
			Store:         monitor.NewFileStore(p.StateFile()),
			LookaheadDays: p.MonitorLookaheadDays,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// One pass up front so a short-lived run still does work.
		if handled, err := m.CheckOnce(ctx); err != nil {
			slog.Error("initial monitor pass failed", "error", err)
		} else {
			slog.Info("monitor pass complete", "events_handled", len(handled))
		}

		if viper.GetBool("monitor.once") {
			return nil
		}
		slog.Info("monitoring calendar", "schedule", p.MonitorCron, "lookahead_days", p.MonitorLookaheadDays)
		err = m.Run(ctx, p.MonitorCron)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Show recurring payment reminders, optionally booking them",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProfile()
		if err != nil {
			return err
		}

		specs := viper.GetStringSlice("remind.payments")
		payments, err := reminder.ParsePayments(specs)
		if err != nil {
			return err
		}
		if len(payments) == 0 && p.Mode == "demo" {
			payments = []reminder.Payment{
				{Name: "piano", DayOfMonth: 1, Description: "Piano lessons payment"},
				{Name: "fencing", DayOfMonth: 1, Description: "Fencing lessons payment"},
			}
		}

		svc := reminder.NewService(payments)
		days := viper.GetInt("remind.days")
		fmt.Print(svc.Summary(days))

		if viper.GetBool("remind.book") {
			_, _, mem := newCalendar(p)
			created, err := svc.Book(cmd.Context(), mem, days)
			if err != nil {
				return err
			}
			fmt.Printf("\nBooked %d reminder event(s).\n", len(created))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("slotwise %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory for runtime state")
	rootCmd.PersistentFlags().String("viewer-zone", "", "your timezone for dual-stamped output")

	searchCmd.Flags().Int("duration", 30, "meeting length in minutes")
	searchCmd.Flags().Int("days", schedule.DefaultSearchWindowDays, "search window in days")
	searchCmd.Flags().String("zone", "", "target timezone or location (free text)")
	searchCmd.Flags().StringSlice("dates", nil, "restrict the search to specific dates (YYYY-MM-DD)")
	searchCmd.Flags().StringSlice("exclude-dates", nil, "dates to skip entirely (YYYY-MM-DD)")

	planCmd.Flags().Int("days", schedule.DefaultSearchWindowDays, "planning window in days")

	monitorCmd.Flags().Bool("once", false, "run a single pass and exit")

	remindCmd.Flags().StringSlice("payments", nil, "recurring payments as name:day[:description]")
	remindCmd.Flags().Int("days", 7, "days ahead to look for upcoming payments")
	remindCmd.Flags().Bool("book", false, "book reminder events on the calendar")

	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data"))
	_ = viper.BindPFlag("viewer-zone", rootCmd.PersistentFlags().Lookup("viewer-zone"))
	_ = viper.BindPFlag("search.duration", searchCmd.Flags().Lookup("duration"))
	_ = viper.BindPFlag("search.days", searchCmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("search.zone", searchCmd.Flags().Lookup("zone"))
	_ = viper.BindPFlag("search.dates", searchCmd.Flags().Lookup("dates"))
	_ = viper.BindPFlag("search.exclude-dates", searchCmd.Flags().Lookup("exclude-dates"))
	_ = viper.BindPFlag("plan.days", planCmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("monitor.once", monitorCmd.Flags().Lookup("once"))
	_ = viper.BindPFlag("remind.payments", remindCmd.Flags().Lookup("payments"))
	_ = viper.BindPFlag("remind.days", remindCmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("remind.book", remindCmd.Flags().Lookup("book"))

	viper.SetEnvPrefix("slotwise")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(searchCmd, planCmd, monitorCmd, remindCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
