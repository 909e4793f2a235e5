// Package query implements the filtering, sorting and pagination pipeline
// the listing view runs against the job collection. It is pure and
// stateless: every call recomputes the projection from scratch.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/drag1web/job-board/app/store"
)

// PageSize is the fixed number of jobs per page
const PageSize = 8

// sort keys accepted by Apply; anything else keeps the input order
const (
	SortByDate   = "date"
	SortBySalary = "salary"
)

// Params holds the filter/sort/page parameters. Zero values mean "no
// filter" everywhere; Page below 1 is treated as page 1.
type Params struct {
	Search   string // case-insensitive substring over title OR company
	Type     string // exact job type match
	Location string // case-insensitive substring over location
	Tags     string // comma-separated terms, each must match some job tag
	Sort     string // "date", "salary" or empty
	Page     int    // 1-indexed
}

// ParamsFromValues maps URL query parameters (q, type, location, tags,
// sort, page) to Params. Sort defaults to "date", a missing or unparseable
// page to 1.
func ParamsFromValues(v url.Values) Params {
	page, err := strconv.Atoi(v.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	sortBy := v.Get("sort")
	if sortBy == "" {
		sortBy = SortByDate
	}
	return Params{
		Search:   v.Get("q"),
		Type:     v.Get("type"),
		Location: v.Get("location"),
		Tags:     v.Get("tags"),
		Sort:     sortBy,
		Page:     page,
	}
}

// Result is the paginated projection
type Result struct {
	Jobs       []store.Job
	Total      int // jobs matching the filters, before pagination
	TotalPages int
	Page       int
}

// Apply runs the full pipeline in its fixed order: search, type, location
// and tags filters (all ANDed), then sort, then pagination. A page past the
// end yields an empty slice, not an error.
func Apply(jobs []store.Job, p Params) Result {
	search := strings.ToLower(p.Search)
	location := strings.ToLower(p.Location)
	terms := parseTags(p.Tags)

	filtered := make([]store.Job, 0, len(jobs))
	for _, job := range jobs {
		if search != "" && !strings.Contains(strings.ToLower(job.Title), search) &&
			!strings.Contains(strings.ToLower(job.Company), search) {
			continue
		}
		if p.Type != "" && job.Type != p.Type {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(job.Location), location) {
			continue
		}
		if len(terms) > 0 && !matchTags(job.Tags, terms) {
			continue
		}
		filtered = append(filtered, job)
	}

	sortJobs(filtered, p.Sort)

	total := len(filtered)
	totalPages := (total + PageSize - 1) / PageSize

	page := p.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	if start >= total {
		return Result{Jobs: []store.Job{}, Total: total, TotalPages: totalPages, Page: page}
	}
	end := start + PageSize
	if end > total {
		end = total
	}
	return Result{Jobs: filtered[start:end], Total: total, TotalPages: totalPages, Page: page}
}

// parseTags splits a comma-separated filter into trimmed lowercase terms
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		if term := strings.ToLower(strings.TrimSpace(part)); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// matchTags reports whether every filter term substring-matches at least
// one of the job's tags, case-insensitively
func matchTags(tags, terms []string) bool {
	for _, term := range terms {
		found := false
		for _, tag := range tags {
			if strings.Contains(strings.ToLower(tag), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortJobs orders by postedAt descending for "date" and salaryFrom
// descending for "salary". The sort is stable, unknown keys keep the input
// order and unparseable timestamps sort as zero time (oldest).
func sortJobs(jobs []store.Job, key string) {
	switch key {
	case SortByDate:
		sort.SliceStable(jobs, func(i, j int) bool {
			return jobs[i].Posted().After(jobs[j].Posted())
		})
	case SortBySalary:
		sort.SliceStable(jobs, func(i, j int) bool {
			return jobs[i].SalaryFrom > jobs[j].SalaryFrom
		})
	}
}
