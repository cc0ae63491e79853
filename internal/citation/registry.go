// Package citation harvests reference groups from the live tree and numbers
// them as footnotes.
package citation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/deepmd/internal/doctree"
)

// Citation is one numbered footnote target.
type Citation struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// UnknownTitle titles a citation whose links never appeared.
const UnknownTitle = "Unknown Source"

const unresolvedPrefix = "#unresolved-"

// Unresolved reports whether c is a placeholder for a group whose links
// never appeared.
func (c Citation) Unresolved() bool {
	return strings.HasPrefix(c.URL, unresolvedPrefix)
}

// Registry accumulates the citations of one export run. Each distinct URL
// gets exactly one id; ids run 1..N in first-discovery order.
type Registry struct {
	list  []Citation
	byURL map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byURL: make(map[string]int)}
}

// Add returns the id for url, creating a citation if the url is new.
func (r *Registry) Add(title, url string) (id int, created bool) {
	if id, ok := r.Lookup(url); ok {
		return id, false
	}
	title = strings.TrimSpace(doctree.CollapseSpace(title))
	if title == "" {
		title = url
	}
	id = len(r.list) + 1
	r.list = append(r.list, Citation{ID: id, Title: title, URL: url})
	r.byURL[url] = id
	return id, true
}

// Placeholder records a citation for a group whose links could not be
// harvested. Its URL is unique so it never merges with another citation.
func (r *Registry) Placeholder() int {
	id := len(r.list) + 1
	url := fmt.Sprintf("%s%d", unresolvedPrefix, id)
	r.list = append(r.list, Citation{ID: id, Title: UnknownTitle, URL: url})
	r.byURL[url] = id
	return id
}

// Lookup returns the id already assigned to url.
func (r *Registry) Lookup(url string) (int, bool) {
	id, ok := r.byURL[url]
	return id, ok
}

// Len is the number of citations so far, which is also the highest id.
func (r *Registry) Len() int {
	return len(r.list)
}

// All returns a copy of every citation sorted by id.
func (r *Registry) All() []Citation {
	return r.Since(0)
}

// Since returns the citations with an id greater than n, sorted by id.
func (r *Registry) Since(n int) []Citation {
	out := make([]Citation, 0, len(r.list))
	for _, c := range r.list {
		if c.ID > n {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Definitions renders one footnote definition per citation, each followed
// by a blank line.
func Definitions(cites []Citation) string {
	var buf strings.Builder
	for _, c := range cites {
		buf.WriteString("[^" + strconv.Itoa(c.ID) + "]: [" + c.Title + "](" + c.URL + ")\n\n")
	}
	return buf.String()
}

func joinIDs(ids []int) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.Itoa(id)
	}
	return strings.Join(strs, ",")
}
