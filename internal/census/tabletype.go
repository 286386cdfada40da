package census

import (
	"strings"

	"github.com/rotisserie/eris"
)

// TableType is the upstream API's classification of variable tables. Each
// type lives under its own URL path and a single query may only request
// variables from one type.
type TableType string

const (
	Detail            TableType = "detail"
	Subject           TableType = "subject"
	Profile           TableType = "profile"
	ComparisonProfile TableType = "cprofile"
)

// pathSuffix returns the URL path component appended to the source dataset
// for this table type. Detail tables live at the dataset root.
func (t TableType) pathSuffix() string {
	switch t {
	case Subject:
		return "/subject"
	case Profile:
		return "/profile"
	case ComparisonProfile:
		return "/cprofile"
	default:
		return ""
	}
}

// prefixTypes maps variable-code prefixes to table types. Longer prefixes
// are listed first so DP/CP win over bare single-letter matches.
var prefixTypes = []struct {
	prefix string
	typ    TableType
}{
	{"DP", Profile},
	{"CP", ComparisonProfile},
	{"S", Subject},
	{"B", Detail},
	{"C", Detail},
}

// typeForVariable resolves a variable code to its table type.
func typeForVariable(code string) (TableType, error) {
	for _, pt := range prefixTypes {
		if strings.HasPrefix(code, pt.prefix) {
			return pt.typ, nil
		}
	}
	return "", eris.Errorf("census: no table type for variable %q", code)
}

// partition groups variable codes by table type, preserving first-seen
// order within each group. Duplicate codes collapse.
func partition(codes []string) (map[TableType][]string, error) {
	groups := make(map[TableType][]string)
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true

		typ, err := typeForVariable(code)
		if err != nil {
			return nil, err
		}
		groups[typ] = append(groups[typ], code)
	}
	return groups, nil
}

// orderedTypes is the deterministic iteration order over partition groups.
var orderedTypes = []TableType{Detail, Subject, Profile, ComparisonProfile}
