package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/todoapi/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTodoItem(t *testing.T) {
	convey.Convey("Given a TodoItem", t, func() {
		item := model.TodoItem{Key: 1, Name: "Buy milk", IsComplete: false}

		convey.Convey("When applying an update with a different key", func() {
			updated := item.Apply(model.TodoItem{Key: 99, Name: "Buy oat milk", IsComplete: true})

			convey.Convey("Then only name and completion change", func() {
				convey.So(updated.Key, convey.ShouldEqual, 1)
				convey.So(updated.Name, convey.ShouldEqual, "Buy oat milk")
				convey.So(updated.IsComplete, convey.ShouldBeTrue)
			})

			convey.Convey("And the original value is untouched", func() {
				convey.So(item.Name, convey.ShouldEqual, "Buy milk")
				convey.So(item.IsComplete, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When encoding to JSON", func() {
			b, err := json.Marshal(item)

			convey.Convey("Then it uses the wire field names", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldEqual, `{"key":1,"name":"Buy milk","isComplete":false}`)
			})
		})

		convey.Convey("When formatting the key", func() {
			convey.So(model.TodoItem{Key: -42}.KeyString(), convey.ShouldEqual, "-42")
			convey.So(item.KeyString(), convey.ShouldEqual, "1")
		})
	})
}
