// Package query turns user-facing catalog filters into a normalized query and
// defines the catalog's ranking order.
package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"acadrive/internal/model"
)

var (
	// ErrInvalidFilter is returned for filter values outside their domain.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrOwnerRequired is returned when OwnerOnly is requested without an identity.
	ErrOwnerRequired = errors.New("owner filter requires an identity")
)

// Filters are the browse controls as supplied by a caller. Zero values mean "no restriction".
type Filters struct {
	SearchText   string
	ResourceType string // a model.ResourceType, model.AllTypes or empty
	Semester     int    // 0 or 1..8
	OwnerOnly    bool
}

// Query is a validated, normalized set of catalog predicates. All set fields combine with AND.
type Query struct {
	Search       string
	ResourceType model.ResourceType
	Semester     int
	OwnerID      string
}

// Compose validates f and builds a Query. ownerID is the caller's identity and is
// only consulted when f.OwnerOnly is set.
func Compose(f Filters, ownerID string) (Query, error) {
	q := Query{Search: strings.TrimSpace(f.SearchText)}

	switch t := strings.TrimSpace(f.ResourceType); t {
	case "", model.AllTypes:
	default:
		rt, err := model.ParseResourceType(t)
		if err != nil {
			return Query{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		q.ResourceType = rt
	}

	if f.Semester != 0 {
		if f.Semester < model.MinSemester || f.Semester > model.MaxSemester {
			return Query{}, fmt.Errorf("%w: semester must be between %d and %d", ErrInvalidFilter, model.MinSemester, model.MaxSemester)
		}
		q.Semester = f.Semester
	}

	if f.OwnerOnly {
		if ownerID == "" {
			return Query{}, ErrOwnerRequired
		}
		q.OwnerID = ownerID
	}

	return q, nil
}

// Matches evaluates q against a single resource. It mirrors the SQL the
// repository renders for q and is used wherever results are filtered in memory.
func (q Query) Matches(r model.Resource) bool {
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(r.SubjectName), needle) &&
			!strings.Contains(strings.ToLower(r.SubjectCode), needle) &&
			!strings.Contains(strings.ToLower(r.FileName), needle) {
			return false
		}
	}
	if q.ResourceType != "" && r.ResourceType != q.ResourceType {
		return false
	}
	if q.Semester != 0 && r.Semester != q.Semester {
		return false
	}
	if q.OwnerID != "" && r.OwnerID != q.OwnerID {
		return false
	}
	return true
}

// Less is the catalog ranking: score descending, then newest first, then id
// descending so the order is total.
func Less(a, b model.Resource) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Rank sorts rs in place by the catalog ranking.
func Rank(rs []model.Resource) {
	sort.SliceStable(rs, func(i, j int) bool { return Less(rs[i], rs[j]) })
}

// Apply filters rs by q and returns the ranked survivors in a new slice.
func (q Query) Apply(rs []model.Resource) []model.Resource {
	out := make([]model.Resource, 0, len(rs))
	for _, r := range rs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	Rank(out)
	return out
}
