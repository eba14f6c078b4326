package version

import "testing"

func TestFields(t *testing.T) {
	oldCommit := Commit
	t.Cleanup(func() { Commit = oldCommit })
	Commit = "abc123"

	got := map[string]string{}
	for _, f := range Fields() {
		got[f.Key] = f.String
	}
	if got["version"] != Version || got["commit"] != "abc123" {
		t.Errorf("fields = %v", got)
	}
	if got["build_date"] == "" {
		t.Error("build_date should never be empty")
	}
}
