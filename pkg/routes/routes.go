// Package routes holds the static URL table shared by the HTTP layer and
// permalink generation. Route names are stable identifiers; patterns use
// echo-style ":param" segments.
package routes

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ParamKind selects how a resource identifies a single record in its path.
type ParamKind int

const (
	// ParamID captures a positive integer primary key.
	ParamID ParamKind = iota
	// ParamSlug captures word characters and hyphens.
	ParamSlug
)

// Action names one of the conventional per-resource handlers.
type Action string

const (
	ActionNew    Action = "new"
	ActionDetail Action = "detail"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	ActionLinks  Action = "links"
	ActionLink   Action = "link"
	ActionFile   Action = "file"
)

// Resource is a URL prefix served by the generic record handlers.
type Resource struct {
	Name   string
	Prefix string
	Param  ParamKind
}

// Route is one (pattern, handler, name) entry of the table.
type Route struct {
	Name     string
	Resource string
	Action   Action
	Methods  []string
	Pattern  string
}

// Resource names.
const (
	Cloning     = "cloning"
	Mutagenesis = "mutagenesis"
	Protocol    = "protocol"
	Experiment  = "experiment"
	Result      = "result"
	Sequencing  = "sequencing"
	Cohort      = "cohort"
)

// Resources lists every record resource in registration order.
var Resources = []Resource{
	{Name: Cloning, Prefix: "/cloning/cloning/", Param: ParamID},
	{Name: Mutagenesis, Prefix: "/experimentdb/clones/mutagenesis/", Param: ParamID},
	{Name: Protocol, Prefix: "/protocol/", Param: ParamSlug},
	{Name: Experiment, Prefix: "/experiment/", Param: ParamSlug},
	{Name: Result, Prefix: "/result/", Param: ParamID},
	{Name: Sequencing, Prefix: "/sequencing/", Param: ParamID},
	{Name: Cohort, Prefix: "/cohort/", Param: ParamID},
}

var (
	table  []Route
	byName map[string]Route
)

func init() {
	byName = make(map[string]Route)
	for _, res := range Resources {
		for _, r := range resourceRoutes(res) {
			if _, dup := byName[r.Name]; dup {
				panic(fmt.Sprintf("routes: duplicate route name %q", r.Name))
			}
			table = append(table, r)
			byName[r.Name] = r
		}
	}
}

func resourceRoutes(res Resource) []Route {
	param := ":id"
	if res.Param == ParamSlug {
		param = ":slug"
	}
	item := res.Prefix + param
	return []Route{
		{Name: res.Name + "-new", Resource: res.Name, Action: ActionNew, Methods: []string{http.MethodPost}, Pattern: res.Prefix + "new/"},
		{Name: res.Name + "-detail", Resource: res.Name, Action: ActionDetail, Methods: []string{http.MethodGet}, Pattern: item + "/"},
		{Name: res.Name + "-edit", Resource: res.Name, Action: ActionEdit, Methods: []string{http.MethodPost, http.MethodPut}, Pattern: item + "/edit"},
		{Name: res.Name + "-delete", Resource: res.Name, Action: ActionDelete, Methods: []string{http.MethodPost, http.MethodDelete}, Pattern: item + "/delete"},
		{Name: res.Name + "-list", Resource: res.Name, Action: ActionList, Methods: []string{http.MethodGet}, Pattern: res.Prefix},
		{Name: res.Name + "-links", Resource: res.Name, Action: ActionLinks, Methods: []string{http.MethodGet, http.MethodPost}, Pattern: item + "/links/:relation/"},
		{Name: res.Name + "-link", Resource: res.Name, Action: ActionLink, Methods: []string{http.MethodDelete}, Pattern: item + "/links/:relation/:target"},
		{Name: res.Name + "-file", Resource: res.Name, Action: ActionFile, Methods: []string{http.MethodGet, http.MethodPost}, Pattern: item + "/files/:field"},
	}
}

// Table returns a copy of the full route table.
func Table() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// Lookup returns the route registered under name.
func Lookup(name string) (Route, bool) {
	r, ok := byName[name]
	return r, ok
}

// Reverse substitutes params, in order, into the ":param" segments of the
// named route's pattern.
func Reverse(name string, params ...string) (string, error) {
	r, ok := byName[name]
	if !ok {
		return "", fmt.Errorf("routes: no route named %q", name)
	}
	segments := strings.Split(r.Pattern, "/")
	next := 0
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("routes: %s needs more than %d params", name, len(params))
		}
		segments[i] = url.PathEscape(params[next])
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("routes: %s takes %d params, got %d", name, next, len(params))
	}
	return strings.Join(segments, "/"), nil
}

// MustReverse is Reverse for names and arities fixed at compile time.
func MustReverse(name string, params ...string) string {
	u, err := Reverse(name, params...)
	if err != nil {
		panic(err)
	}
	return u
}

var slugPattern = regexp.MustCompile(`^[\w-]+$`)

// ValidSlug reports whether s matches the slug parameter shape.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// ParseID parses a numeric id parameter. Only positive integers are accepted.
func ParseID(s string) (int64, bool) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
