package natives

import (
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"emo/internal/value"
	"emo/internal/vm"
)

const resourceKindWS = "ws"

// RegisterNet wires ws_dial/ws_send/ws_recv, generalizing the teacher's
// internal/network/websocket.go client into emo's native surface.
func RegisterNet(v *vm.VM) {
	v.RegisterNative("ws_dial", func(args []value.Value) (value.Value, error) {
		url, err := stringArg(args, 0)
		if err != nil {
			return value.Meta, err
		}
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return value.Meta, errors.Wrap(err, "ws_dial")
		}
		return wrapResource(v, resourceKindWS, conn), nil
	})

	v.RegisterNative("ws_send", func(args []value.Value) (value.Value, error) {
		res, err := resourceArg(args, 0, resourceKindWS)
		if err != nil {
			return value.Meta, err
		}
		msg, err := stringArg(args, 1)
		if err != nil {
			return value.Meta, err
		}
		conn := res.Handle.(*websocket.Conn)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return value.Meta, errors.Wrap(err, "ws_send")
		}
		return value.Bool(true), nil
	})

	v.RegisterNative("ws_recv", func(args []value.Value) (value.Value, error) {
		res, err := resourceArg(args, 0, resourceKindWS)
		if err != nil {
			return value.Meta, err
		}
		conn := res.Handle.(*websocket.Conn)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return value.Meta, errors.Wrap(err, "ws_recv")
		}
		return value.FromObj(v.Allocator().InternString(msg)), nil
	})
}
