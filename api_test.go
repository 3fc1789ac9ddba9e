package vmd

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const centres92Sample = `{
	"last_updated": "2021-12-01T11:00:00+01:00",
	"centres_disponibles": [{"nom": "Centre 92", "internal_id": "b", "prochain_rdv": "2021-12-02T09:00:00+01:00"}],
	"centres_indisponibles": []
}`

func newTestApi(t *testing.T) (*httptest.Server, *int64) {
	var hits int64

	mux := http.NewServeMux()
	mux.HandleFunc("/75.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(centresSample))
	})
	mux.HandleFunc("/75/creneaux-quotidiens.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailySlotsSample))
	})
	mux.HandleFunc("/92.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			w.Write([]byte(centres92Sample))
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(centres92Sample))
		gz.Close()
	})
	mux.HandleFunc("/92/creneaux-quotidiens.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"departement": "92", "creneaux_quotidiens": []}`))
	})
	mux.HandleFunc("/13.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/13/creneaux-quotidiens.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"creneaux_quotidiens": []}`))
	})
	mux.HandleFunc("/01.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"centres_disponibles": [{"nom": 12}]}`))
	})
	mux.HandleFunc("/02.json", func(w http.ResponseWriter, r *http.Request) {
	})
	mux.HandleFunc("/03.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"last_updated": "2021-12-01"}`))
	})
	mux.HandleFunc("/stats.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tout_departement": {"disponibles": 123, "total": 456, "creneaux": 789}, "75": {"disponibles": 1, "total": 2, "creneaux": 3}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &hits
}

func newTestClient(server *httptest.Server) *Client {
	config := DefaultConfig()
	config.ApiUrl = server.URL
	config.GeoApiUrl = server.URL
	config.RequestsPerSecond = 0
	return NewClient(config)
}

func TestFetchCentres(t *testing.T) {
	server, hits := newTestApi(t)
	client := newTestClient(server)

	resp, err := client.FetchCentres(context.Background(), "75")
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if len(resp.AllCentres()) != 3 {
		t.Errorf("Expected 3 centres, got %d", len(resp.AllCentres()))
		return
	}

	// served from cache
	if _, err := client.FetchCentres(context.Background(), "75"); err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if atomic.LoadInt64(hits) != 1 {
		t.Errorf("Expected 1 request, got %d", atomic.LoadInt64(hits))
		return
	}
}

func TestFetchCentresGzip(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	resp, err := client.FetchCentres(context.Background(), "92")
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if len(resp.AvailableCentres) != 1 || resp.AvailableCentres[0].Department != "92" {
		t.Errorf("Expected one centre defaulted to department 92, got %v", resp.AvailableCentres)
		return
	}
}

func TestFetchErrors(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)
	ctx := context.Background()

	if _, err := client.FetchCentres(ctx, "13"); !errors.Is(err, ErrTransport) {
		t.Errorf("Expected transport error, got %v", err)
		return
	}
	if _, err := client.FetchCentres(ctx, "01"); !errors.Is(err, ErrDecode) {
		t.Errorf("Expected decode error, got %v", err)
		return
	}
	if _, err := client.FetchCentres(ctx, "02"); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected no data error for an empty body, got %v", err)
		return
	}
	if _, err := client.FetchCentres(ctx, "03"); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected no data error without centre lists, got %v", err)
		return
	}
	if _, err := client.FetchCentres(ctx, "404"); !errors.Is(err, ErrTransport) {
		t.Errorf("Expected transport error for a missing file, got %v", err)
		return
	}
}

func TestFetchDepartments(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	data, err := client.FetchDepartments(context.Background(), []string{"75", "92"})
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}

	if len(data.Centres) != 4 {
		t.Errorf("Expected 4 centres, got %d: %v", len(data.Centres), centreIds(data.Centres))
		return
	}
	if data.Centres[0].ID() != "doctolib1" {
		t.Errorf("Expected department order to be kept, got %v", centreIds(data.Centres))
		return
	}
	if len(data.DailySlots) != 2 || data.DailySlots[1].Department != "92" {
		t.Errorf("Expected daily slots of 75 and 92, got %v", data.DailySlots)
		return
	}
	if data.LastUpdated != "2021-12-01T11:00:00+01:00" {
		t.Errorf("Expected latest last_updated, got %s", data.LastUpdated)
		return
	}
}

func TestFetchDepartmentsFirstError(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	data, err := client.FetchDepartments(context.Background(), []string{"75", "13"})
	if err == nil {
		t.Errorf("Expected error, got %v", data)
		return
	}
	if !errors.Is(err, ErrTransport) || !strings.Contains(err.Error(), "13.json") {
		t.Errorf("Expected transport error for 13, got %v", err)
		return
	}

	if _, err := client.FetchDepartments(context.Background(), nil); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected no data error, got %v", err)
		return
	}
}

func TestLoadHome(t *testing.T) {
	server, _ := newTestApi(t)
	client := newTestClient(server)

	home, err := client.LoadHome(context.Background())
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
		return
	}
	if home.National.Slots != 789 {
		t.Errorf("Expected 789 national slots, got %d", home.National.Slots)
		return
	}
	if home.Percentage == nil || *home.Percentage < 26.9 || *home.Percentage > 27.0 {
		t.Errorf("Expected ~26.97%%, got %v", home.Percentage)
		return
	}
	if _, ok := home.Departments[StatsAllDepartments]; ok {
		t.Errorf("Expected national entry to be removed from departments")
		return
	}
	if len(home.Departments) != 1 {
		t.Errorf("Expected 1 department, got %d", len(home.Departments))
		return
	}
}
