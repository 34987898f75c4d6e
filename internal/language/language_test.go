package language

import "testing"

func TestValid(t *testing.T) {
	for _, code := range []string{"en", "it", "es", "fr", "de", "ja", "zh"} {
		if !Valid(code) {
			t.Errorf("Valid(%q) = false", code)
		}
	}
	for _, code := range []string{"", "auto", "klingon", "EN", "eng"} {
		if Valid(code) {
			t.Errorf("Valid(%q) = true", code)
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("en"); got != "English" {
		t.Errorf("Name(en) = %q", got)
	}
	if got := Name("xx"); got != "xx" {
		t.Errorf("Name(xx) = %q, want the code echoed back", got)
	}
}

func TestAllIsACopy(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("All() empty")
	}
	all[0].Code = "mutated"
	if All()[0].Code == "mutated" {
		t.Error("All() exposes internal state")
	}
}
