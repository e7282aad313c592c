package natives

import (
	"bytes"
	"strings"
	"testing"

	"emo/internal/vm"
)

func TestDBOpenUnknownDriverIsError(t *testing.T) {
	v := vm.New()
	RegisterDB(v)

	_, err := v.Interpret(`db_open("not-a-real-driver", "irrelevant");`)
	if err == nil {
		t.Fatal("expected a runtime error for an unrecognized driver name")
	}
}

func TestDBOpenExecQueryRoundTrip(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithOutput(&out))
	RegisterDB(v)

	_, err := v.Interpret(`
let db = db_open("sqlite", ":memory:");
db_exec(db, "create table items(name text)");
db_exec(db, "insert into items(name) values ('a')");
db_exec(db, "insert into items(name) values ('b')");
print(db_query(db, "select * from items"));
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "2" {
		t.Errorf("row count = %q, want %q", out.String(), "2")
	}
}
