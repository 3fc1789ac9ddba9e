package vmd

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v2"
)

//go:embed departments.yaml
var departmentsYAML []byte

type Department struct {
	Code       string   `yaml:"code"`
	Name       string   `yaml:"name"`
	Neighbours []string `yaml:"neighbours"`
}

var departmentsOnce sync.Once
var departmentList []Department
var departmentsByCode map[string]Department

func loadDepartments() {
	departmentsOnce.Do(func() {
		departmentsByCode = make(map[string]Department)
		if err := yaml.Unmarshal(departmentsYAML, &departmentList); err != nil {
			Log.Errorf("Could not parse embedded department table: %v", err)
			return
		}
		for _, department := range departmentList {
			departmentsByCode[department.Code] = department
		}
	})
}

func Departments() []Department {
	loadDepartments()
	return append([]Department(nil), departmentList...)
}

func LookupDepartment(code string) (Department, bool) {
	loadDepartments()
	department, ok := departmentsByCode[NormalizeDepartmentCode(code)]
	return department, ok
}

// NormalizeDepartmentCode pads single digit codes ("1" -> "01") and upper
// cases the Corsican ones.
func NormalizeDepartmentCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 1 && code[0] >= '0' && code[0] <= '9' {
		return "0" + code
	}
	return code
}

// DepartmentForPostalCode derives the department code of a French postal code.
func DepartmentForPostalCode(postalCode string) (string, error) {
	postalCode = strings.TrimSpace(postalCode)
	if len(postalCode) != 5 {
		return "", fmt.Errorf("invalid postal code: %q", postalCode)
	}

	switch {
	case strings.HasPrefix(postalCode, "97"):
		return postalCode[:3], nil
	case strings.HasPrefix(postalCode, "20"):
		// 200xx and 201xx are Corse-du-Sud, the rest Haute-Corse
		if postalCode[2] <= '1' {
			return "2A", nil
		}
		return "2B", nil
	default:
		return postalCode[:2], nil
	}
}

var foldTransformer = sync.Pool{
	New: func() interface{} {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

// FoldName lower cases s, strips accents and turns separators into spaces so
// that "Côte-d'Or" and "cote d or" compare equal.
func FoldName(s string) string {
	t := foldTransformer.Get().(transform.Transformer)
	defer foldTransformer.Put(t)

	t.Reset()
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.Map(func(r rune) rune {
		if r == '-' || r == '\'' || r == '’' {
			return ' '
		}
		return unicode.ToLower(r)
	}, folded)

	return strings.Join(strings.Fields(folded), " ")
}

// SearchDepartments matches query against department codes and folded names;
// exact matches come first, then prefix matches, then substring matches.
func SearchDepartments(query string) []LocationSearchResult {
	loadDepartments()

	folded := FoldName(query)
	if len(folded) == 0 {
		return nil
	}

	type rankedDepartment struct {
		department Department
		rank       int
	}

	matches := make([]rankedDepartment, 0)
	for _, department := range departmentList {
		name := FoldName(department.Name)
		rank := -1
		switch {
		case strings.EqualFold(department.Code, NormalizeDepartmentCode(query)) || name == folded:
			rank = 0
		case strings.HasPrefix(name, folded):
			rank = 1
		case strings.Contains(name, folded):
			rank = 2
		}
		if rank >= 0 {
			matches = append(matches, rankedDepartment{department: department, rank: rank})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].rank < matches[j].rank
	})

	results := make([]LocationSearchResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, NewDepartmentSearchResult(match.department))
	}

	return results
}
