package vmd

import (
	"context"
	"fmt"
	"strings"
)

// App wires a config snapshot to the client, the preference store and the
// push subscriber. Binaries build one per invocation.
type App struct {
	Config     *Config
	Client     *Client
	Prefs      *Preferences
	Subscriber Subscriber

	store      KeyValueStore
	amqpCloser func()
}

// LoadConfig reads the config file (default path when empty) and overlays
// remote values from the parameter store when enabled.
func LoadConfig(path string) (*Config, error) {
	var config *Config
	var err error

	if len(path) == 0 {
		config, err = NewConfigDefaultPath()
	} else {
		config, err = NewConfig(path)
	}
	if err != nil {
		return nil, err
	}

	if config.RemoteConfig {
		if HasAWSCredentials() {
			config = config.LoadRemoteConfig(GetAWSParameter)
		} else {
			Log.Warnf("Remote config enabled but no AWS credentials were found, using local values")
		}
	}

	return config, nil
}

func NewApp(ctx context.Context, config *Config) (*App, error) {
	store, err := OpenKeyValueStore(ctx, config)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     config,
		Client:     NewClient(config),
		Prefs:      NewPreferences(store),
		Subscriber: LogSubscriber{},
		store:      store,
	}

	if len(config.AmqpUrl) > 0 {
		subscriber, err := NewAMQPSubscriber(config.AmqpUrl)
		if err != nil {
			store.Close()
			return nil, err
		}
		app.Subscriber = subscriber
		app.amqpCloser = subscriber.Close
	}

	return app, nil
}

func (a *App) Close() {
	if a.amqpCloser != nil {
		a.amqpCloser()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			Log.Warnf("Closing preferences: %v", err)
		}
	}
}

// Resolve turns a query into one search result: the best department or city match.
func (a *App) Resolve(ctx context.Context, query string) (LocationSearchResult, error) {
	results, err := a.Client.Search(ctx, query)
	if err != nil {
		return LocationSearchResult{}, err
	}
	if len(results) == 0 {
		return LocationSearchResult{}, fmt.Errorf("%w: nothing matches %q", ErrNoData, query)
	}
	return results[0], nil
}

// SearchCentres runs the whole pipeline for search. Nil options fall back to
// the stored preferences; given ones are stored. The search is recorded in
// the recent searches list once it succeeded.
func (a *App) SearchCentres(ctx context.Context, search LocationSearchResult, sortOpt *SortOption, filterOpt *FilterOption) (CentresListSnapshot, error) {
	sort, err := a.Prefs.SortOption(ctx)
	if err != nil {
		return CentresListSnapshot{}, err
	}
	if sortOpt != nil {
		sort = *sortOpt
		if err := a.Prefs.SetSortOption(ctx, sort); err != nil {
			return CentresListSnapshot{}, err
		}
	}

	filter, err := a.Prefs.FilterOption(ctx)
	if err != nil {
		return CentresListSnapshot{}, err
	}
	if filterOpt != nil {
		filter = *filterOpt
		if err := a.Prefs.SetFilterOption(ctx, filter); err != nil {
			return CentresListSnapshot{}, err
		}
	}

	snapshot, err := a.RunSearch(ctx, search, sort, filter)
	if err != nil {
		return CentresListSnapshot{}, err
	}

	if err := a.Prefs.AddSearchResult(ctx, search); err != nil {
		Log.Warnf("Could not record search %s: %v", search.FormattedName(), err)
	}

	return snapshot, nil
}

// RunSearch fetches, ranks and exports one search with the given options.
// Nothing is read from or written to the preferences.
func (a *App) RunSearch(ctx context.Context, search LocationSearchResult, sort SortOption, filter FilterOption) (CentresListSnapshot, error) {
	list := NewCentresList(a.Client, search, sort, filter)
	if err := list.Reload(ctx); err != nil {
		return CentresListSnapshot{}, err
	}

	snapshot := list.Snapshot()

	if _, err := ExportSnapshot(ctx, a.Config, snapshot); err != nil {
		Log.Warnf("Export failed: %v", err)
	}

	return snapshot, nil
}

// SearchDepartmentCodes builds a plain department search from a comma
// separated list of codes, without neighbours.
func SearchDepartmentCodes(codes string) (LocationSearchResult, error) {
	parts := strings.Split(codes, ",")
	result := LocationSearchResult{}

	for _, part := range parts {
		code := NormalizeDepartmentCode(part)
		if len(code) == 0 {
			continue
		}
		department, ok := LookupDepartment(code)
		if !ok {
			return LocationSearchResult{}, fmt.Errorf("unknown department: %q", part)
		}
		if len(result.SelectedDepartmentCode) == 0 {
			result.Name = department.Name
			result.SelectedDepartmentCode = department.Code
		} else {
			result.NearDepartmentCodes = append(result.NearDepartmentCodes, department.Code)
		}
	}

	if len(result.SelectedDepartmentCode) == 0 {
		return LocationSearchResult{}, fmt.Errorf("no department in %q", codes)
	}

	return result, nil
}
