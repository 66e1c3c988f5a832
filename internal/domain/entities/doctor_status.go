package entities

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StatusCategory is the display classification of a doctor's raw status
type StatusCategory string

const (
	StatusAvailable   StatusCategory = "available"
	StatusBusy        StatusCategory = "busy"
	StatusConsulting  StatusCategory = "consulting"
	StatusUnavailable StatusCategory = "unavailable"
	StatusUnknown     StatusCategory = "unknown"
)

// Badge labels. An empty status reads "Not Available" even though it is
// classified Unknown; an explicit unavailable status reads "Unavailable".
const (
	BadgeLabelNoStatus    = "Not Available"
	BadgeLabelUnavailable = "Unavailable"
)

// StatusStyle is the visual treatment of a category
type StatusStyle struct {
	Color      string `json:"color"`
	BadgeClass string `json:"badge_class"`
	Label      string `json:"label"`
}

// statusVocabulary maps lower-cased raw statuses to categories. Anything not
// listed is Unknown.
var statusVocabulary = map[string]StatusCategory{
	"available":     StatusAvailable,
	"busy":          StatusBusy,
	"consulting":    StatusConsulting,
	"emergency":     StatusBusy,
	"unavailable":   StatusUnavailable,
	"not available": StatusUnavailable,
}

var statusStyles = map[StatusCategory]StatusStyle{
	StatusAvailable: {
		Color:      "#22c55e",
		BadgeClass: "badge-available",
		Label:      "Available",
	},
	StatusBusy: {
		Color:      "#ef4444",
		BadgeClass: "badge-busy",
		Label:      "Busy",
	},
	StatusConsulting: {
		Color:      "#3b82f6",
		BadgeClass: "badge-consulting",
		Label:      "Consulting",
	},
	StatusUnavailable: {
		Color:      "#6b7280",
		BadgeClass: "badge-unavailable",
		Label:      BadgeLabelUnavailable,
	},
	StatusUnknown: {
		Color:      "#9ca3af",
		BadgeClass: "badge-unknown",
		Label:      "Unknown",
	},
}

// Categories lists every category in display order
func Categories() []StatusCategory {
	return []StatusCategory{StatusAvailable, StatusBusy, StatusConsulting, StatusUnavailable, StatusUnknown}
}

// ClassifyStatus maps a raw status to its category. Matching is
// case-insensitive and ignores surrounding whitespace.
func ClassifyStatus(status string) StatusCategory {
	if category, ok := statusVocabulary[normalizeStatus(status)]; ok {
		return category
	}
	return StatusUnknown
}

// StatusStyleFor returns the style of a category. Unrecognized categories get
// the Unknown style.
func StatusStyleFor(category StatusCategory) StatusStyle {
	if style, ok := statusStyles[category]; ok {
		return style
	}
	return statusStyles[StatusUnknown]
}

// BadgeLabel returns the badge text for a raw status. Unrecognized statuses
// are shown title-cased with whitespace collapsed.
func BadgeLabel(status string) string {
	normalized := normalizeStatus(status)
	if normalized == "" {
		return BadgeLabelNoStatus
	}

	category := ClassifyStatus(status)
	switch {
	case normalized == "emergency":
		return "Emergency"
	case category == StatusUnknown:
		return cases.Title(language.Und).String(normalized)
	default:
		return StatusStyleFor(category).Label
	}
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.Join(strings.Fields(status), " "))
}
