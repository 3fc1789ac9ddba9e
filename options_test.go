package vmd

import (
	"testing"
)

func TestParseOptions(t *testing.T) {
	sort, err := ParseSortOption(" Third_Dose ")
	if err != nil || sort != SortThirdDose {
		t.Errorf("Expected third_dose, got %s (%v)", sort, err)
		return
	}
	if _, err := ParseSortOption("random"); err == nil {
		t.Errorf("Expected error, got nil")
		return
	}

	filter, err := ParseFilterOption("arnm")
	if err != nil || filter != FilterVaccineTypeARNm {
		t.Errorf("Expected arnm, got %s (%v)", filter, err)
		return
	}
	if vaccineType, ok := filter.VaccineType(); !ok || vaccineType != "ARNm" {
		t.Errorf("Expected ARNm, got %s", vaccineType)
		return
	}
	if _, ok := FilterKidsFirstDoses.VaccineType(); ok {
		t.Errorf("Expected no vaccine type for the kids filter")
		return
	}
}

func TestOptionsText(t *testing.T) {
	var filter FilterOption
	if err := filter.UnmarshalText([]byte("janssen")); err != nil || filter != FilterVaccineTypeJanssen {
		t.Errorf("Expected janssen, got %s (%v)", filter, err)
		return
	}
	if text, err := SortThirdDose.MarshalText(); err != nil || string(text) != "third_dose" {
		t.Errorf("Expected third_dose, got %s (%v)", text, err)
		return
	}
	if _, err := SortOption(42).MarshalText(); err == nil {
		t.Errorf("Expected error for an invalid sort option, got nil")
		return
	}
}
