package model

import (
	"fmt"
	"time"
)

// ResourceType is the closed set of document kinds a resource can be catalogued as.
type ResourceType string

const (
	TypeNotes         ResourceType = "Notes"
	TypeModule        ResourceType = "Module"
	TypeQuestionPaper ResourceType = "Question Paper"
	TypeQuestionSet   ResourceType = "Question Set"
)

// AllTypes is the filter sentinel meaning "any resource type".
const AllTypes = "All"

// ResourceTypes lists every valid ResourceType in display order.
var ResourceTypes = []ResourceType{TypeNotes, TypeModule, TypeQuestionPaper, TypeQuestionSet}

// Valid reports whether t is one of the catalogued types.
func (t ResourceType) Valid() bool {
	for _, v := range ResourceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseResourceType converts user input to a ResourceType. The match is exact.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return t, nil
}

const (
	MinSemester = 1
	MaxSemester = 8
)

// VoteDirection is the direction of a single vote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// ParseVoteDirection accepts "up" or "down".
func ParseVoteDirection(s string) (VoteDirection, error) {
	d := VoteDirection(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown vote direction %q", s)
	}
	return d, nil
}

// Resource is a catalog entry: an uploaded academic document plus its vote aggregate.
// Only the vote counters change after creation.
type Resource struct {
	ID           string       `json:"id"`
	SubjectName  string       `json:"subject_name"`
	SubjectCode  string       `json:"subject_code"`
	Semester     int          `json:"semester"`
	ResourceType ResourceType `json:"resource_type"`
	FileName     string       `json:"file_name"`
	FileURL      string       `json:"file_url"`
	FileHash     string       `json:"file_hash"`
	OwnerID      string       `json:"owner_id"`
	Upvotes      int          `json:"upvotes"`
	Downvotes    int          `json:"downvotes"`
	Score        int          `json:"score"`
	CreatedAt    time.Time    `json:"created_at"`
}

const (
	recommendedMinUpvotes = 5
	recommendedMinScore   = 3
)

// Recommended reports whether the resource earns the "recommended" badge.
// It is derived on read and never stored.
func (r Resource) Recommended() bool {
	return r.Upvotes >= recommendedMinUpvotes && r.Score >= recommendedMinScore
}

// WithVote returns a copy of r with one vote in direction d applied to its counters.
func (r Resource) WithVote(d VoteDirection) Resource {
	switch d {
	case VoteUp:
		r.Upvotes++
		r.Score++
	case VoteDown:
		r.Downvotes++
		r.Score--
	}
	return r
}
