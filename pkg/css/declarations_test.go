package css

import "testing"

func TestDeclarationsPreserveOrder(t *testing.T) {
	d := ParseDeclarations("color: red; Font-Weight: bold;; broken; width:")
	if got := d.String(); got != "color: red; font-weight: bold" {
		t.Fatalf("String() = %q", got)
	}
	d = d.Set("top", "10px").Set("color", "blue")
	if got := d.String(); got != "color: blue; font-weight: bold; top: 10px" {
		t.Errorf("after Set = %q", got)
	}
	d = d.Remove("font-weight")
	if _, ok := d.Get("font-weight"); ok {
		t.Error("font-weight should be removed")
	}
	if got := d.String(); got != "color: blue; top: 10px" {
		t.Errorf("after Remove = %q", got)
	}
}

func TestDeclarationsImportant(t *testing.T) {
	d := ParseDeclarations("top: 5px !important")
	if v, _ := d.Get("top"); v != "5px" {
		t.Errorf("top = %q", v)
	}
}
