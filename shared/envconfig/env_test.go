package envconfig

import "testing"

func TestParseAndValidate(t *testing.T) {
	type sample struct {
		Port  string   `env:"HYDRO_TEST_PORT" envDefault:"8080" validate:"required"`
		Days  int      `env:"HYDRO_TEST_DAYS" envDefault:"28" validate:"min=7"`
		Flags []string `env:"HYDRO_TEST_FLAGS" envSeparator:","`
	}

	t.Setenv("HYDRO_TEST_FLAGS", "a,b")
	var cfg sample
	if err := Parse(&cfg); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.Port != "8080" || cfg.Days != 28 || len(cfg.Flags) != 2 {
		t.Fatalf("unexpected parse result: %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	t.Setenv("HYDRO_TEST_DAYS", "3")
	cfg = sample{}
	if err := Parse(&cfg); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation failure for days=3")
	}
}
