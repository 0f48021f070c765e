package model

import (
	"strings"
)

// DraftStep is one state of the card intake conversation.
type DraftStep string

const (
	StepWaitingLink        DraftStep = "waiting_link"
	StepWaitingDistrict    DraftStep = "waiting_district"
	StepWaitingCategory    DraftStep = "waiting_category"
	StepWaitingHashtags    DraftStep = "waiting_hashtags"
	StepWaitingDescription DraftStep = "waiting_description"
	StepPreview            DraftStep = "preview"
)

const (
	MaxDistrictLen     = 100
	MaxCategoryLen     = 50
	MaxCategoryWords   = 3
	MaxDescriptionLen  = 1000
	SuggestedTextInput = "."
)

// CardDraft is the in-progress state of a card being collected step by
// step from an admin. One draft exists per admin; it is keyed by the
// admin's Telegram ID in the draft-state store and never persisted to the
// catalog until published.
type CardDraft struct {
	AdminID int64     `json:"admin_id"`
	Step    DraftStep `json:"step"`
	Groups  []Group   `json:"groups"`

	Link             string   `json:"link,omitempty"`
	Media            Media    `json:"media,omitempty"`
	SuggestedCaption string   `json:"suggested_caption,omitempty"`
	District         string   `json:"district,omitempty"`
	Category         string   `json:"category,omitempty"`
	Hashtags         []string `json:"hashtags,omitempty"`
	Description      string   `json:"description,omitempty"`
}

func NewCardDraft(adminID int64, groups []Group) *CardDraft {
	return &CardDraft{
		AdminID: adminID,
		Step:    StepWaitingLink,
		Groups:  append([]Group(nil), groups...),
	}
}

// AttachMedia records the resolved source post and advances past the link
// step.
func (d *CardDraft) AttachMedia(link string, media Media, caption string) {
	d.Link = link
	d.Media = media
	d.SuggestedCaption = caption
	d.Step = StepWaitingDistrict
}

// StepError reports why an input was rejected for the current step.
type StepError string

func (e StepError) Error() string { return string(e) }

const (
	ErrDistrictTooLong    StepError = "district exceeds max length"
	ErrCategoryTooLong    StepError = "category exceeds max length"
	ErrCategoryTooManyWds StepError = "category has too many words"
	ErrNoHashtags         StepError = "at least one hashtag required"
	ErrDescriptionTooLong StepError = "description exceeds max length"
	ErrWrongStep          StepError = "input does not apply to current step"
)

// Advance applies one text input to the draft and moves to the next step.
// A validation failure leaves the draft untouched so the caller can
// re-prompt in the same state. The link step is handled separately via
// AttachMedia because it needs the media resolver.
func (d *CardDraft) Advance(input string) error {
	input = strings.TrimSpace(input)
	switch d.Step {
	case StepWaitingDistrict:
		if len([]rune(input)) > MaxDistrictLen {
			return ErrDistrictTooLong
		}
		d.District = input
		d.Step = StepWaitingCategory
		return nil

	case StepWaitingCategory:
		if len([]rune(input)) > MaxCategoryLen {
			return ErrCategoryTooLong
		}
		if len(strings.Fields(input)) > MaxCategoryWords {
			return ErrCategoryTooManyWds
		}
		d.Category = input
		d.Step = StepWaitingHashtags
		return nil

	case StepWaitingHashtags:
		tags := ParseHashtags(input)
		if len(tags) == 0 {
			return ErrNoHashtags
		}
		d.Hashtags = tags
		d.Step = StepWaitingDescription
		return nil

	case StepWaitingDescription:
		if input == SuggestedTextInput && d.SuggestedCaption != "" {
			input = d.SuggestedCaption
		}
		if len([]rune(input)) > MaxDescriptionLen {
			return ErrDescriptionTooLong
		}
		d.Description = input
		d.Step = StepPreview
		return nil

	default:
		return ErrWrongStep
	}
}

// ParseHashtags splits whitespace-separated tokens and strips a leading
// tag marker from each. Empty tokens are dropped.
func ParseHashtags(input string) []string {
	var tags []string
	for _, word := range strings.Fields(input) {
		tag := strings.TrimSpace(strings.TrimLeft(word, "#"))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
