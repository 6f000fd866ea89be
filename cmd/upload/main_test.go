package main

import "testing"

func TestFileFlags(t *testing.T) {
	f := fileFlags{}
	if err := f.Set("table_metadata=./a.csv"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := f.Set("column_definitions=obj://uploads/x/b.csv"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if f["table_metadata"] != "./a.csv" || f["column_definitions"] != "obj://uploads/x/b.csv" {
		t.Errorf("unexpected flags %v", f)
	}

	for _, bad := range []string{"no-separator", "=a.csv", "slot="} {
		if err := f.Set(bad); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
}
