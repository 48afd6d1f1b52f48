package redaction

import "testing"

func TestRegistryMedicalGating(t *testing.T) {
	withMedical, err := NewRegistry(true)
	if err != nil {
		t.Fatalf("NewRegistry(true): %v", err)
	}
	withoutMedical, err := NewRegistry(false)
	if err != nil {
		t.Fatalf("NewRegistry(false): %v", err)
	}

	if len(withMedical.Patterns()) <= len(withoutMedical.Patterns()) {
		t.Errorf("medical patterns not gated: %d vs %d",
			len(withMedical.Patterns()), len(withoutMedical.Patterns()))
	}

	hasType := func(r *Registry, phiType PHIType) bool {
		for _, p := range r.Patterns() {
			if p.Type == phiType {
				return true
			}
		}
		return false
	}
	if !hasType(withMedical, PHIVitalSigns) {
		t.Error("vital_signs missing with medical patterns enabled")
	}
	if hasType(withoutMedical, PHIVitalSigns) {
		t.Error("vital_signs present with medical patterns disabled")
	}
	if !hasType(withoutMedical, PHISSN) {
		t.Error("ssn should be present regardless of medical gating")
	}

	// 医疗模式关闭时 "BP: 120/80" 不应命中
	r := NewRedactor(withoutMedical, false)
	if result := r.Redact("BP: 120/80 recorded"); result.PHIDetected {
		t.Errorf("vital signs matched with medical patterns disabled: %+v", result.Matches)
	}
}

func TestIsLikelyName(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"John Smith", true},
		{"Jane Doe", true},
		{"General Hospital", false},
		{"Mercy Clinic", false},
		{"Acme Insurance", false},
		{"Attorney Jones", false},
		{"lowercase name", false},
		{"Single", false},
		{"Three Word Name", false},
	}
	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			if got := isLikelyName(tt.candidate); got != tt.want {
				t.Errorf("isLikelyName(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}
