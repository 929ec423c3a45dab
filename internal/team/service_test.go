package team

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// The get-by-id response carries the member list next to the flattened team
// fields and counts.
func TestTeamDetailEmbedsMembers(t *testing.T) {
	d := &TeamDetail{
		TeamWithStats: TeamWithStats{
			Team:        Team{ID: 1, Name: "Platform", CreatorID: 10},
			MemberCount: 2,
		},
		Members: []*Member{
			{ID: 10, Username: "alice"},
			{ID: 11, Username: "bob"},
		},
	}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("failed to marshal team detail: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("failed to unmarshal team detail: %v", err)
	}

	if got["name"] != "Platform" {
		t.Errorf("expected the team fields at the top level, got %v", got["name"])
	}
	if got["member_count"] != float64(2) {
		t.Errorf("expected member_count at the top level, got %v", got["member_count"])
	}
	members, ok := got["members"].([]interface{})
	if !ok || len(members) != 2 {
		t.Fatalf("expected an embedded members array of 2, got %v", got["members"])
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(nil) // validation failures never reach the store

	tests := []struct {
		name    string
		input   CreateTeamInput
		wantErr error
	}{
		{
			name:    "name too short",
			input:   CreateTeamInput{Name: "ab"},
			wantErr: ErrNameLength,
		},
		{
			name:    "name too long",
			input:   CreateTeamInput{Name: strings.Repeat("x", 101)},
			wantErr: ErrNameLength,
		},
		{
			name:    "whitespace-only name",
			input:   CreateTeamInput{Name: "    "},
			wantErr: ErrNameLength,
		},
		{
			name:    "illegal characters",
			input:   CreateTeamInput{Name: "team!@#"},
			wantErr: ErrNameInvalid,
		},
		{
			name:    "description too long",
			input:   CreateTeamInput{Name: "Backend Crew", Description: strings.Repeat("d", 1001)},
			wantErr: ErrDescriptionTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdate_Validation(t *testing.T) {
	svc := NewService(nil)

	badName := "x"
	longDesc := strings.Repeat("d", 1001)

	if _, err := svc.Update(context.Background(), 1, UpdateTeamInput{Name: &badName}); !errors.Is(err, ErrNameLength) {
		t.Errorf("expected ErrNameLength, got %v", err)
	}
	if _, err := svc.Update(context.Background(), 1, UpdateTeamInput{Description: &longDesc}); !errors.Is(err, ErrDescriptionTooLong) {
		t.Errorf("expected ErrDescriptionTooLong, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "letters and spaces", in: "Backend Crew"},
		{name: "hyphens and underscores", in: "ops_on-call"},
		{name: "digits", in: "team 42"},
		{name: "minimum length", in: "abc"},
		{name: "too short", in: "ab", wantErr: ErrNameLength},
		{name: "punctuation rejected", in: "dev&ops", wantErr: ErrNameInvalid},
		{name: "unicode rejected", in: "équipe", wantErr: ErrNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("validateName(%q) = %v, want %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeDescription(t *testing.T) {
	got, err := normalizeDescription("  hello  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != "hello" {
		t.Errorf("expected trimmed description, got %v", got)
	}

	got, err = normalizeDescription("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("blank description should become nil, got %q", *got)
	}
}
