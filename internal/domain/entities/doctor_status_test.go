package entities

import (
	"testing"
)

func TestClassifyStatus_Vocabulary(t *testing.T) {
	tests := []struct {
		status string
		want   StatusCategory
	}{
		{"available", StatusAvailable},
		{"Available", StatusAvailable},
		{"  AVAILABLE ", StatusAvailable},
		{"busy", StatusBusy},
		{"BUSY", StatusBusy},
		{"consulting", StatusConsulting},
		{"Consulting", StatusConsulting},
		{"emergency", StatusBusy},
		{"Emergency", StatusBusy},
		{"unavailable", StatusUnavailable},
		{"not available", StatusUnavailable},
		{"Not  Available", StatusUnavailable},
		{"", StatusUnknown},
		{"   ", StatusUnknown},
		{"on leave", StatusUnknown},
		{"availabl", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := ClassifyStatus(tt.status); got != tt.want {
				t.Errorf("ClassifyStatus(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus_Totality(t *testing.T) {
	known := make(map[StatusCategory]bool)
	for _, c := range Categories() {
		known[c] = true
	}

	inputs := []string{"", "x", "AVAILABLE", "bUsY", "\tconsulting\n", "ÉMERGENCY", "not available ", "🙂", "null", "undefined"}
	for _, input := range inputs {
		got := ClassifyStatus(input)
		if !known[got] {
			t.Errorf("ClassifyStatus(%q) returned undefined category %q", input, got)
		}
		if StatusStyleFor(got).Color == "" {
			t.Errorf("category %q has no color", got)
		}
	}
}

func TestStatusStyleFor_EveryCategoryStyled(t *testing.T) {
	seen := make(map[string]StatusCategory)
	for _, c := range Categories() {
		style := StatusStyleFor(c)
		if style.Color == "" || style.BadgeClass == "" || style.Label == "" {
			t.Errorf("category %q has incomplete style: %+v", c, style)
		}
		if other, dup := seen[style.BadgeClass]; dup {
			t.Errorf("categories %q and %q share badge class %q", c, other, style.BadgeClass)
		}
		seen[style.BadgeClass] = c
	}

	if StatusStyleFor("bogus") != StatusStyleFor(StatusUnknown) {
		t.Error("unrecognized category should fall back to the unknown style")
	}
}

func TestStatusStyleFor_EmergencySharesBusyStyle(t *testing.T) {
	if StatusStyleFor(ClassifyStatus("emergency")) != StatusStyleFor(StatusBusy) {
		t.Error("emergency should render with the busy style")
	}
}

func TestBadgeLabel(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"", "Not Available"},
		{"  ", "Not Available"},
		{"unavailable", "Unavailable"},
		{"Not Available", "Unavailable"},
		{"available", "Available"},
		{"busy", "Busy"},
		{"consulting", "Consulting"},
		{"EMERGENCY", "Emergency"},
		{"On Leave", "On Leave"},
		{"on leave", "On Leave"},
		{"  ON   LEAVE ", "On Leave"},
		{"in-theatre", "In-Theatre"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := BadgeLabel(tt.status); got != tt.want {
				t.Errorf("BadgeLabel(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestBadgeLabel_EmptyAndUnavailableStayDistinct(t *testing.T) {
	if ClassifyStatus("") == ClassifyStatus("unavailable") {
		t.Fatal("empty and unavailable statuses should classify differently")
	}
	if BadgeLabel("") == BadgeLabel("unavailable") {
		t.Fatal("empty and unavailable statuses should keep distinct labels")
	}
}
