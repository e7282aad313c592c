package natives

import (
	"testing"

	"emo/internal/vm"
)

func TestWSDialInvalidURLIsError(t *testing.T) {
	v := vm.New()
	RegisterNet(v)

	_, err := v.Interpret(`ws_dial("not a url");`)
	if err == nil {
		t.Fatal("expected a runtime error for an unreachable/invalid websocket URL")
	}
}

func TestWSSendWrongResourceKindIsError(t *testing.T) {
	v := vm.New()
	RegisterDB(v)
	RegisterNet(v)

	_, err := v.Interpret(`
let db = db_open("sqlite", ":memory:");
ws_send(db, "hello");
`)
	if err == nil {
		t.Fatal("expected ws_send to reject a db resource")
	}
}
