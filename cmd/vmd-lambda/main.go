package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"

	vmd "github.com/CovidWA/vitemadose-go"
)

// AWS Lambda wrapper

type SearchEvent struct {
	Query       string `json:"query"`
	Departments string `json:"departments"`
	Sort        string `json:"sort"`
	Filter      string `json:"filter"`
}

func RunWithPanicTrap(ctx context.Context, evt SearchEvent) (result string, err error) {
	//trap any panic calls and return them as the error
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else if str, ok := r.(string); ok {
				err = errors.New(str)
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()

	return search(ctx, evt)
}

func search(ctx context.Context, evt SearchEvent) (string, error) {
	config, err := vmd.LoadConfig("")
	if err != nil {
		return "", err
	}

	//never write files on lambda, S3 output still applies
	config.DumpOutput = false
	//searches never touch the preferences, the store only has to open
	config.PreferencesBackend = vmd.PreferencesBackendFile
	config.PreferencesPath = "/tmp/vmd-preferences.json"

	return runSearch(ctx, config, evt)
}

// runSearch answers one event. Missing options mean the defaults, never
// what an earlier invocation on the same container asked for.
func runSearch(ctx context.Context, config *vmd.Config, evt SearchEvent) (string, error) {
	app, err := vmd.NewApp(ctx, config)
	if err != nil {
		return "", err
	}
	defer app.Close()

	var location vmd.LocationSearchResult
	switch {
	case len(evt.Departments) > 0:
		location, err = vmd.SearchDepartmentCodes(evt.Departments)
	case len(evt.Query) > 0:
		location, err = app.Resolve(ctx, evt.Query)
	default:
		err = errors.New("query or departments is required")
	}
	if err != nil {
		return "", err
	}

	sortOpt := vmd.DefaultSortOption
	if len(evt.Sort) > 0 {
		if sortOpt, err = vmd.ParseSortOption(evt.Sort); err != nil {
			return "", err
		}
	}

	filterOpt := vmd.DefaultFilterOption
	if len(evt.Filter) > 0 {
		if filterOpt, err = vmd.ParseFilterOption(evt.Filter); err != nil {
			return "", err
		}
	}

	snapshot, err := app.RunSearch(ctx, location, sortOpt, filterOpt)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func HandleRequest(ctx context.Context, evt SearchEvent) (string, error) {
	result, err := RunWithPanicTrap(ctx, evt)
	if err != nil {
		vmd.Log.Errorf("Search %q/%q failed: %v", evt.Query, evt.Departments, err)
		return fmt.Sprintf("Execution finished with error: %s%s!", evt.Query, evt.Departments), err
	}
	return result, nil
}

func main() {
	lambda.Start(HandleRequest)
}
