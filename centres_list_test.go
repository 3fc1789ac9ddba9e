package vmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCentresListReload(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	search := LocationSearchResult{Name: "Paris", SelectedDepartmentCode: "75"}
	list := NewCentresList(client, search, SortClosest, FilterAllDoses)

	if err := list.Reload(context.Background()); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}

	snapshot := list.Snapshot()
	if len(snapshot.Centres) != 3 {
		t.Errorf("Expected 3 centres, got %d", len(snapshot.Centres))
		return
	}
	if snapshot.Sort != SortFastest {
		t.Errorf("Expected fastest without coordinates, got %s", snapshot.Sort)
		return
	}
	if snapshot.SortSelectable || snapshot.ThirdDoseSelectable {
		t.Errorf("Expected sort choices to be disabled without coordinates")
		return
	}
	if snapshot.Centres[0].ID() != "doctolib1" {
		t.Errorf("Expected the available centre first, got %v", centreIds(snapshot.Centres))
		return
	}
	if snapshot.Summary.AvailableCentres != 1 || snapshot.Summary.DepartmentAppointments != 48 {
		t.Errorf("Unexpected summary: %+v", snapshot.Summary)
		return
	}

	list.SetFilter(FilterVaccineTypeJanssen)
	if snapshot := list.Snapshot(); len(snapshot.Centres) != 0 {
		t.Errorf("Expected no Janssen centre, got %v", centreIds(snapshot.Centres))
		return
	}

	list.SetFilter(FilterVaccineTypePfizer)
	if snapshot := list.Snapshot(); len(snapshot.Centres) != 1 {
		t.Errorf("Expected 1 Pfizer centre, got %v", centreIds(snapshot.Centres))
		return
	}

	// applied options are reported by name, after the closest fallback
	body, err := json.Marshal(list.Snapshot())
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	applied := struct {
		Sort   string `json:"sort"`
		Filter string `json:"filter"`
	}{}
	if err := json.Unmarshal(body, &applied); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if applied.Sort != "fastest" || applied.Filter != "pfizer" {
		t.Errorf("Expected fastest/pfizer, got %s/%s", applied.Sort, applied.Filter)
		return
	}
}

func TestCentresListReloadKeepsData(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	list := NewCentresList(client, LocationSearchResult{SelectedDepartmentCode: "75"}, SortFastest, FilterAllDoses)
	if err := list.Reload(context.Background()); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}

	list.Search = LocationSearchResult{SelectedDepartmentCode: "13"}
	if err := list.Reload(context.Background()); !errors.Is(err, ErrTransport) {
		t.Errorf("Expected transport error, got %v", err)
		return
	}

	if snapshot := list.Snapshot(); len(snapshot.Centres) != 3 {
		t.Errorf("Expected previous centres to be kept, got %d", len(snapshot.Centres))
		return
	}
	if list.IsLoading() {
		t.Errorf("Expected loading to be reset after a failure")
		return
	}
}

func TestCentresListAlreadyLoading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	mux := http.NewServeMux()
	mux.HandleFunc("/75.json", func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Write([]byte(centresSample))
	})
	mux.HandleFunc("/75/creneaux-quotidiens.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailySlotsSample))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	list := NewCentresList(newTestClient(server), LocationSearchResult{SelectedDepartmentCode: "75"}, SortFastest, FilterAllDoses)

	done := make(chan error, 1)
	go func() {
		done <- list.Reload(context.Background())
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("Expected first reload to reach the server")
	}

	if !list.IsLoading() {
		t.Errorf("Expected list to be loading")
	}
	if err := list.Reload(context.Background()); !errors.Is(err, ErrAlreadyLoading) {
		t.Errorf("Expected ErrAlreadyLoading, got %v", err)
	}

	close(release)

	if err := <-done; err != nil {
		t.Errorf("Expected first reload to succeed, got %v", err)
		return
	}
}

func TestCentresListSortAroundCity(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	search := LocationSearchResult{
		Name:                   "Paris",
		PostalCode:             "75001",
		SelectedDepartmentCode: "75",
		Coordinates:            &GeoCoord{Lat: 48.86, Lng: 2.34},
	}
	list := NewCentresList(client, search, SortClosest, FilterKidsFirstDoses)
	if err := list.Reload(context.Background()); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}

	snapshot := list.Snapshot()
	if !snapshot.SortSelectable || snapshot.ThirdDoseSelectable {
		t.Errorf("Expected sort selectable without third dose for kids")
		return
	}

	list.SetSort(SortThirdDose)
	if snapshot := list.Snapshot(); snapshot.Sort != SortFastest {
		t.Errorf("Expected fastest for kids with third dose sort, got %s", snapshot.Sort)
		return
	}
}
