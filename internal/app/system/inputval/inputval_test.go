package inputval

import "testing"

type personForm struct {
	FirstName string `validate:"required,max=5" label:"First name"`
	Email     string `validate:"omitempty,email" label:"Email"`
	Status    string `validate:"oneof=active disabled" label:"Status"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   personForm
		want []string
	}{
		{
			name: "valid",
			in:   personForm{FirstName: "Ada", Status: "active"},
		},
		{
			name: "missing name",
			in:   personForm{Status: "active"},
			want: []string{"First name is required."},
		},
		{
			name: "too long and bad email",
			in:   personForm{FirstName: "Adelaide", Email: "nope", Status: "active"},
			want: []string{"First name must be at most 5 characters.", "A valid email address is required."},
		},
		{
			name: "bad status",
			in:   personForm{FirstName: "Ada", Status: "gone"},
			want: []string{"Status must be one of: active disabled."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(tt.in)
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if len(res.Messages) != len(tt.want) {
				t.Fatalf("messages: got %v, want %v", res.Messages, tt.want)
			}
			for i := range tt.want {
				if res.Messages[i] != tt.want[i] {
					t.Errorf("message %d: got %q, want %q", i, res.Messages[i], tt.want[i])
				}
			}
			if res.OK() != (len(tt.want) == 0) {
				t.Errorf("OK() = %v", res.OK())
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user+tag@example.com", true},
		{"", false},
		{"   ", false},
		{"user@", false},
		{"@example.com", false},
		{"User Name <user@example.com>", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
