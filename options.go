package vmd

import (
	"fmt"
	"strings"
)

type SortOption int

const (
	SortClosest SortOption = iota
	SortFastest
	SortThirdDose
)

const DefaultSortOption = SortFastest

var sortOptionNames = map[SortOption]string{
	SortClosest:   "closest",
	SortFastest:   "fastest",
	SortThirdDose: "third_dose",
}

func (o SortOption) String() string {
	if name, ok := sortOptionNames[o]; ok {
		return name
	}
	return fmt.Sprintf("sort(%d)", int(o))
}

func (o SortOption) Valid() bool {
	_, ok := sortOptionNames[o]
	return ok
}

func (o SortOption) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid sort option: %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *SortOption) UnmarshalText(text []byte) error {
	option, err := ParseSortOption(string(text))
	if err != nil {
		return err
	}
	*o = option
	return nil
}

func ParseSortOption(name string) (SortOption, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for option, optionName := range sortOptionNames {
		if optionName == name {
			return option, nil
		}
	}
	return DefaultSortOption, fmt.Errorf("unknown sort option: %s", name)
}

type FilterOption int

const (
	FilterAllDoses FilterOption = iota
	FilterKidsFirstDoses
	FilterVaccineTypeModerna
	FilterVaccineTypePfizer
	FilterVaccineTypeARNm
	FilterVaccineTypeJanssen
	FilterVaccineTypeNovavax
)

const DefaultFilterOption = FilterAllDoses

var filterOptionNames = map[FilterOption]string{
	FilterAllDoses:           "all_doses",
	FilterKidsFirstDoses:     "kids_first_doses",
	FilterVaccineTypeModerna: "moderna",
	FilterVaccineTypePfizer:  "pfizer",
	FilterVaccineTypeARNm:    "arnm",
	FilterVaccineTypeJanssen: "janssen",
	FilterVaccineTypeNovavax: "novavax",
}

// names as they appear in a centre's vaccine_type list
var filterVaccineTypes = map[FilterOption]string{
	FilterVaccineTypeModerna: "Moderna",
	FilterVaccineTypePfizer:  "Pfizer-BioNTech",
	FilterVaccineTypeARNm:    "ARNm",
	FilterVaccineTypeJanssen: "Janssen",
	FilterVaccineTypeNovavax: "Novavax",
}

func (o FilterOption) String() string {
	if name, ok := filterOptionNames[o]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", int(o))
}

func (o FilterOption) Valid() bool {
	_, ok := filterOptionNames[o]
	return ok
}

// VaccineType returns the vaccine name matched by a vaccineType* option.
func (o FilterOption) VaccineType() (string, bool) {
	vaccineType, ok := filterVaccineTypes[o]
	return vaccineType, ok
}

func (o FilterOption) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid filter option: %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *FilterOption) UnmarshalText(text []byte) error {
	option, err := ParseFilterOption(string(text))
	if err != nil {
		return err
	}
	*o = option
	return nil
}

func ParseFilterOption(name string) (FilterOption, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for option, optionName := range filterOptionNames {
		if optionName == name {
			return option, nil
		}
	}
	return DefaultFilterOption, fmt.Errorf("unknown filter option: %s", name)
}
