package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"telegram-card-catalog/internal/domain"
)

// Group is the placement tag of a card. The letters mirror the channel's
// admin commands (/addcatalog publishes into A and so on).
type Group string

const (
	GroupCatalog  Group = "A" // permanent catalog listings
	GroupPost     Group = "B" // channel post reprints
	GroupPeople   Group = "C" // private masters
	GroupPriority Group = "D" // priority placement
	GroupPromo    Group = "E" // paid promotion
	GroupTimed    Group = "F" // auto-deleted after TimedCardTTL
	GroupWork     Group = "G" // jobs
	GroupHome     Group = "H" // housing
)

// TimedCardTTL is how long a GroupTimed card lives after publication.
const TimedCardTTL = 24 * time.Hour

// CardSets is the ordered list of group subsets a user may be assigned to.
// Index 0 is the most restrictive; a user's CardSetIndex selects one entry.
var CardSets = [][]Group{
	{GroupCatalog},
	{GroupCatalog, GroupPost},
	{GroupCatalog, GroupPeople},
	{GroupCatalog, GroupPost, GroupPriority, GroupPromo},
	{GroupCatalog, GroupPost, GroupPeople, GroupPriority, GroupPromo, GroupTimed, GroupWork, GroupHome},
}

// PromotedGroups feed the extra slot appended to search results.
var PromotedGroups = []Group{GroupPriority, GroupPromo, GroupTimed}

// CardSetFor clamps an arbitrary index into a valid CardSets entry.
func CardSetFor(index int) []Group {
	if index < 0 || index >= len(CardSets) {
		index = 0
	}
	return CardSets[index]
}

const (
	MinCardNumber = 1
	MaxCardNumber = 9999
)

type MediaType string

const (
	MediaPhoto    MediaType = "photo"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// Media is an opaque reference to an attachment held by the chat platform.
type Media struct {
	Type   MediaType
	FileID string
}

func (m Media) IsZero() bool { return m.Type == "" || m.FileID == "" }

// Card is a published listing.
type Card struct {
	ID           string
	Number       int
	Groups       []Group
	Category     string
	District     string
	Hashtags     []string
	Name         string
	Description  string
	OriginalLink string
	Media        Media

	UniqueViews int
	TotalViews  int
	LinkClicks  int
	Saves       int

	CreatedAt time.Time
	ExpiresAt *time.Time
}

// NewCard builds a card from a completed draft. Expiry is set if and only
// if the timed group was selected.
func NewCard(number int, d *CardDraft) (*Card, error) {
	if number < MinCardNumber || number > MaxCardNumber {
		return nil, domain.ErrInvalidArgument
	}
	if d == nil || len(d.Groups) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	c := &Card{
		ID:           uuid.NewString(),
		Number:       number,
		Groups:       append([]Group(nil), d.Groups...),
		Category:     d.Category,
		District:     d.District,
		Hashtags:     append([]string(nil), d.Hashtags...),
		Description:  d.Description,
		OriginalLink: d.Link,
		Media:        d.Media,
		CreatedAt:    time.Now(),
	}
	if c.HasGroup(GroupTimed) {
		exp := c.CreatedAt.Add(TimedCardTTL)
		c.ExpiresAt = &exp
	}
	return c, nil
}

func (c *Card) HasGroup(g Group) bool {
	for _, have := range c.Groups {
		if have == g {
			return true
		}
	}
	return false
}

func (c *Card) HasAnyGroup(gs []Group) bool {
	for _, g := range gs {
		if c.HasGroup(g) {
			return true
		}
	}
	return false
}

// HashtagLine renders "#a #b #c" for captions.
func (c *Card) HashtagLine() string {
	if len(c.Hashtags) == 0 {
		return ""
	}
	parts := make([]string, len(c.Hashtags))
	for i, t := range c.Hashtags {
		parts[i] = "#" + t
	}
	return strings.Join(parts, " ")
}
