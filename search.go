package vmd

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LocationSearchResult is a city or department picked by the user.
type LocationSearchResult struct {
	Name                   string    `json:"name"`
	PostalCode             string    `json:"postal_code,omitempty"`
	SelectedDepartmentCode string    `json:"selected_department_code"`
	NearDepartmentCodes    []string  `json:"near_department_codes,omitempty"`
	Coordinates            *GeoCoord `json:"coordinates,omitempty"`
}

func NewDepartmentSearchResult(department Department) LocationSearchResult {
	return LocationSearchResult{
		Name:                   department.Name,
		SelectedDepartmentCode: department.Code,
		NearDepartmentCodes:    append([]string(nil), department.Neighbours...),
	}
}

func (r LocationSearchResult) IsCity() bool {
	return r.Coordinates != nil
}

func (r LocationSearchResult) FormattedName() string {
	if len(r.PostalCode) > 0 {
		return fmt.Sprintf("%s (%s)", r.Name, r.PostalCode)
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.SelectedDepartmentCode)
}

// DepartmentCodes returns the selected department first, then its
// neighbours, without duplicates.
func (r LocationSearchResult) DepartmentCodes() []string {
	codes := make([]string, 0, len(r.NearDepartmentCodes)+1)
	seen := make(map[string]bool)
	for _, code := range append([]string{r.SelectedDepartmentCode}, r.NearDepartmentCodes...) {
		if len(code) == 0 || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes
}

var postalCodePattern = regexp.MustCompile(`^\d{5}$`)

type geoApiPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type geoApiCommune struct {
	Name           string       `json:"nom"`
	Code           string       `json:"code"`
	PostalCodes    []string     `json:"codesPostaux"`
	DepartmentCode string       `json:"codeDepartement"`
	Centre         *geoApiPoint `json:"centre"`
}

// GeoJSON order is longitude, latitude
func (p *geoApiPoint) coord() (*GeoCoord, bool) {
	if p == nil || len(p.Coordinates) < 2 {
		return nil, false
	}
	coord := &GeoCoord{Lat: p.Coordinates[1], Lng: p.Coordinates[0]}
	if coord.Zero() {
		return nil, false
	}
	return coord, true
}

// SearchCities queries the geo API by city name or postal code. Nearby
// departments come from the embedded department table.
func (c *Client) SearchCities(ctx context.Context, query string) ([]LocationSearchResult, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, fmt.Errorf("%w: query too short: %q", ErrNoData, query)
	}

	params := url.Values{}
	params.Set("fields", "nom,code,codesPostaux,codeDepartement,centre")
	params.Set("boost", "population")
	params.Set("limit", "10")

	postalCode := ""
	if postalCodePattern.MatchString(query) {
		postalCode = query
		params.Set("codePostal", query)
	} else {
		params.Set("nom", query)
	}

	searchUrl := fmt.Sprintf("%s/communes?%s", strings.TrimRight(c.Config.GeoApiUrl, "/"), params.Encode())

	body, _, err := c.Fetcher.FetchCached(ctx, searchUrl)
	if err != nil {
		return nil, err
	}

	communes := make([]geoApiCommune, 0)
	if err := decodeJSON(searchUrl, body, &communes); err != nil {
		return nil, err
	}

	results := make([]LocationSearchResult, 0, len(communes))
	for _, commune := range communes {
		coord, ok := commune.Centre.coord()
		if !ok {
			Log.Debugf("Skipping %s (%s): no centroid", commune.Name, commune.Code)
			continue
		}

		result := LocationSearchResult{
			Name:                   commune.Name,
			PostalCode:             postalCode,
			SelectedDepartmentCode: commune.DepartmentCode,
			Coordinates:            coord,
		}
		if len(result.PostalCode) == 0 && len(commune.PostalCodes) > 0 {
			result.PostalCode = commune.PostalCodes[0]
		}
		if department, ok := LookupDepartment(commune.DepartmentCode); ok {
			result.NearDepartmentCodes = append([]string(nil), department.Neighbours...)
		}

		results = append(results, result)
	}

	return results, nil
}

// Search resolves a free text query: department codes and names from the
// embedded table first, then cities from the geo API. A postal code still
// resolves to its department when the geo API is down.
func (c *Client) Search(ctx context.Context, query string) ([]LocationSearchResult, error) {
	if department, ok := LookupDepartment(query); ok {
		return []LocationSearchResult{NewDepartmentSearchResult(department)}, nil
	}

	results := SearchDepartments(query)

	cities, err := c.SearchCities(ctx, query)
	if err != nil {
		if postalCodePattern.MatchString(strings.TrimSpace(query)) {
			if code, codeErr := DepartmentForPostalCode(query); codeErr == nil {
				if department, ok := LookupDepartment(code); ok {
					results = append(results, NewDepartmentSearchResult(department))
				}
			}
		}
		if len(results) > 0 {
			Log.Warnf("City search for %q failed, returning departments only: %v", query, err)
			return results, nil
		}
		return nil, err
	}

	return append(results, cities...), nil
}
