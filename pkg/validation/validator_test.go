package validation

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"personname"`
	Age   *int   `json:"age" validate:"omitempty,age"`
	Page  int    `form:"page" validate:"omitempty,min=1"`
}

func TestToDetails(t *testing.T) {
	v := validator.New()
	Configure(v)
	old, zero := 200, 0

	tests := []struct {
		name string
		in   sample
		want map[string]string
	}{
		{"all bad", sample{Email: "x", Name: "  ", Age: &old}, map[string]string{
			"email": "must be a valid email",
			"name":  "cannot be blank",
			"age":   "must be less than or equal to 150",
		}},
		{"missing email", sample{Name: "Ada", Age: &zero}, map[string]string{"email": "is required"}},
		{"form tag name", sample{Email: "a@x.com", Name: "Ada", Page: -1}, map[string]string{"page": "must be greater than or equal to 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDetails(v.Struct(tt.in))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, msg := range tt.want {
				if got[k] != msg {
					t.Errorf("%s: got %q, want %q", k, got[k], msg)
				}
			}
		})
	}
}

func TestToDetailsJSONErrors(t *testing.T) {
	var s sample
	err := json.Unmarshal([]byte(`{"email": 12}`), &s)
	if got := ToDetails(err); got["email"] != "has the wrong type" {
		t.Errorf("type error details = %v", got)
	}
	err = json.Unmarshal([]byte(`{"email":`), &s)
	if got := ToDetails(err); got["payload"] == "" {
		t.Errorf("syntax error details = %v", got)
	}
	if ToDetails(nil) != nil {
		t.Error("nil error should give nil details")
	}
}
