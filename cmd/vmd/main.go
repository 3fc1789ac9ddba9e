package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	vmd "github.com/CovidWA/vitemadose-go"
)

type Context struct {
	Ctx context.Context
	App *vmd.App
}

var CLI struct {
	Config string `help:"Config file path, ./vmd.yaml when empty." type:"path"`
	Debug  bool   `help:"Enable debug logging."`

	Search     SearchCmd     `cmd:"" help:"Search centres around a department, city or postal code."`
	Stats      StatsCmd      `cmd:"" help:"Show national and per department availability."`
	Follow     FollowCmd     `cmd:"" help:"Follow a centre."`
	Unfollow   UnfollowCmd   `cmd:"" help:"Stop following a centre."`
	Followed   FollowedCmd   `cmd:"" help:"List followed centres."`
	History    HistoryCmd    `cmd:"" help:"Show recent searches."`
	Watch      WatchCmd      `cmd:"" help:"Poll followed centres and notify when they get appointments."`
	Onboarding OnboardingCmd `cmd:"" help:"Show or reset the onboarding flag."`
}

type SearchCmd struct {
	Query       string `arg:"" optional:"" help:"Department name or code, city or postal code."`
	Departments string `help:"Comma separated department codes, skips location search."`
	Sort        string `help:"closest, fastest or third_dose."`
	Filter      string `help:"all_doses, kids_first_doses, moderna, pfizer, arnm, janssen or novavax."`
	Json        bool   `help:"Print the ranked list as JSON."`
}

func (c *SearchCmd) Run(ctx *Context) error {
	var search vmd.LocationSearchResult
	var err error

	switch {
	case len(c.Departments) > 0:
		search, err = vmd.SearchDepartmentCodes(c.Departments)
	case len(c.Query) > 0:
		search, err = ctx.App.Resolve(ctx.Ctx, c.Query)
	default:
		return fmt.Errorf("a query or --departments is required")
	}
	if err != nil {
		return err
	}

	var sortOpt *vmd.SortOption
	if len(c.Sort) > 0 {
		option, err := vmd.ParseSortOption(c.Sort)
		if err != nil {
			return err
		}
		sortOpt = &option
	}

	var filterOpt *vmd.FilterOption
	if len(c.Filter) > 0 {
		option, err := vmd.ParseFilterOption(c.Filter)
		if err != nil {
			return err
		}
		filterOpt = &option
	}

	snapshot, err := ctx.App.SearchCentres(ctx.Ctx, search, sortOpt, filterOpt)
	if err != nil {
		return err
	}

	if c.Json {
		return printJSON(snapshot)
	}

	fmt.Printf("%s: %d centre(s), %d with appointments, %d appointment(s)\n",
		search.FormattedName(), len(snapshot.Centres), snapshot.Summary.AvailableCentres, snapshot.Summary.TotalAppointments)
	fmt.Printf("Sorted by %s, filter %s, updated %s\n", snapshot.Sort, snapshot.Filter, snapshot.Summary.LastUpdated)

	for _, centre := range snapshot.Centres {
		next := "-"
		if centre.NextAppointment != nil {
			next = *centre.NextAppointment
		}
		distance := ""
		if search.Coordinates != nil {
			if coord, ok := centre.Coordinates(); ok {
				distance = fmt.Sprintf(" %.1fkm", vmd.DistanceMeters(*search.Coordinates, coord)/1000)
			}
		}
		fmt.Printf("  [%s] %s (%s)%s next: %s, %d appointment(s)\n",
			centre.ID(), centre.Name, centre.Department, distance, next, centre.AppointmentCount)

		if t, ok := centre.NextAppointmentTime(); ok {
			day := vmd.DayKey(t)
			if boosters := vmd.BoosterShotsCount(snapshot.Slots, centre, day); boosters > 0 {
				fmt.Printf("      %d booster slot(s) on %s\n", boosters, day)
			}
			if kids := vmd.KidsFirstDoseCount(snapshot.Slots, centre, day); kids > 0 {
				fmt.Printf("      %d kids first dose slot(s) on %s\n", kids, day)
			}
		}
	}

	return nil
}

type StatsCmd struct {
	Department string `arg:"" optional:"" help:"Only show this department."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	home, err := ctx.App.Client.LoadHome(ctx.Ctx)
	if err != nil {
		return err
	}

	if len(c.Department) > 0 {
		code := vmd.NormalizeDepartmentCode(c.Department)
		value, ok := home.Departments.Department(code)
		if !ok {
			return fmt.Errorf("no stats for department %s", code)
		}
		fmt.Printf("%s: %d/%d centre(s) available, %d appointment(s)\n", code, value.Available, value.Total, value.Slots)
		return nil
	}

	fmt.Printf("France: %d/%d centre(s) available, %d appointment(s)\n", home.National.Available, home.National.Total, home.National.Slots)
	if home.Percentage != nil {
		fmt.Printf("%.2f%% of centres have appointments\n", *home.Percentage)
	}

	return nil
}

type FollowCmd struct {
	Department    string `arg:"" help:"Department code of the centre."`
	Centre        string `arg:"" help:"Centre id."`
	Notifications string `default:"all" enum:"none,all" help:"Push notifications: none or all."`
}

func (c *FollowCmd) Run(ctx *Context) error {
	notifications, err := vmd.ParseNotificationsType(c.Notifications)
	if err != nil {
		return err
	}
	return vmd.Follow(ctx.Ctx, ctx.App.Prefs, ctx.App.Subscriber, vmd.NormalizeDepartmentCode(c.Department), c.Centre, notifications)
}

type UnfollowCmd struct {
	Department string `arg:"" help:"Department code of the centre."`
	Centre     string `arg:"" help:"Centre id."`
}

func (c *UnfollowCmd) Run(ctx *Context) error {
	return vmd.Unfollow(ctx.Ctx, ctx.App.Prefs, ctx.App.Subscriber, vmd.NormalizeDepartmentCode(c.Department), c.Centre)
}

type FollowedCmd struct{}

func (c *FollowedCmd) Run(ctx *Context) error {
	followed, err := ctx.App.Prefs.AllFollowedCentres(ctx.Ctx)
	if err != nil {
		return err
	}
	for department, centres := range followed {
		for _, fc := range centres {
			fmt.Printf("%s %s notifications=%s\n", department, fc.Id, fc.NotificationsType)
		}
	}
	return nil
}

type HistoryCmd struct{}

func (c *HistoryCmd) Run(ctx *Context) error {
	results, err := ctx.App.Prefs.LastSearchResults(ctx.Ctx)
	if err != nil {
		return err
	}
	for _, result := range results {
		fmt.Println(result.FormattedName())
	}
	return nil
}

type WatchCmd struct {
	Once bool `help:"Run a single pass and exit."`
}

func (c *WatchCmd) Run(ctx *Context) error {
	watcher := vmd.NewWatcher(ctx.App.Client, ctx.App.Prefs, vmd.NewEmailNotifier(ctx.App.Config))

	if c.Once {
		sent, err := watcher.Poll(ctx.Ctx)
		if err != nil {
			return err
		}
		vmd.Log.Infof("Sent %d notification(s)", sent)
		return nil
	}

	interval := time.Duration(ctx.App.Config.WatchInterval) * time.Second
	err := watcher.Run(ctx.Ctx, interval)
	if err == context.Canceled {
		return nil
	}
	return err
}

type OnboardingCmd struct {
	Reset bool `help:"Mark onboarding as not seen."`
	Done  bool `help:"Mark onboarding as seen."`
}

func (c *OnboardingCmd) Run(ctx *Context) error {
	if c.Reset || c.Done {
		return ctx.App.Prefs.SetHasSeenOnboarding(ctx.Ctx, c.Done)
	}
	seen, err := ctx.App.Prefs.HasSeenOnboarding(ctx.Ctx)
	if err != nil {
		return err
	}
	fmt.Printf("onboarding seen: %t\n", seen)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI,
		kong.Name("vmd"),
		kong.Description("Find COVID-19 vaccination appointments in France"),
		kong.UsageOnError(),
	)

	if CLI.Debug {
		os.Setenv(vmd.DebugEnvName, "true")
	}

	config, err := vmd.LoadConfig(CLI.Config)
	if err != nil {
		vmd.Log.Errorf("Can't read config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := vmd.NewApp(ctx, config)
	if err != nil {
		vmd.Log.Errorf("Can't start: %v", err)
		os.Exit(1)
	}

	err = kctx.Run(&Context{Ctx: ctx, App: app})
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
