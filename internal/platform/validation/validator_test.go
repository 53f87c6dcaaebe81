package validation

import "testing"

func TestValidRUT(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "dotted with dash", input: "12.345.678-5", want: true},
		{name: "plain", input: "123456785", want: true},
		{name: "check digit k", input: "12.345.670-K", want: true},
		{name: "lowercase k", input: "12345670-k", want: true},
		{name: "wrong check digit", input: "12.345.678-9", want: false},
		{name: "empty", input: "", want: false},
		{name: "letters in body", input: "abc-5", want: false},
		{name: "just a dash", input: "-", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidRUT(tc.input); got != tc.want {
				t.Fatalf("ValidRUT(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidatorRUTTag(t *testing.T) {
	v := New()

	type payload struct {
		RUT string `validate:"required,rut"`
	}

	if err := v.Struct(payload{RUT: "12.345.678-5"}); err != nil {
		t.Fatalf("expected valid rut to pass, got %v", err)
	}
	if err := v.Struct(payload{RUT: "12.345.678-0"}); err == nil {
		t.Fatal("expected invalid rut to fail validation")
	}
}
