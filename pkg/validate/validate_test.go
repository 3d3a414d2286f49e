package validate

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string  `validate:"required,max=5"`
	Mode  string  `validate:"omitempty,oneof=drop reject"`
	Ratio float64 `validate:"gte=0,lte=1"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		want []string
	}{
		{"valid", sample{Name: "ok", Mode: "drop", Ratio: 0.5}, nil},
		{"missing name", sample{}, []string{"name is required"}},
		{"long name", sample{Name: "toolong"}, []string{"name must be at most 5"}},
		{"bad mode and ratio", sample{Name: "x", Mode: "keep", Ratio: 2},
			[]string{"mode must be one of: drop reject", "ratio must be at most 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %v", tt.want)
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q missing %q", err, w)
				}
			}
		})
	}
}
