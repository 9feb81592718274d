package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/todoapi/internal/app"
	"github.com/okian/todoapi/internal/domain/model"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When walking an item through its lifecycle", func() {
			_, err := svc.Create(ctx, &model.TodoItem{Key: 1, Name: "Item1", IsComplete: false})
			So(err, ShouldBeNil)

			got, err := svc.GetByID(ctx, 1)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, model.TodoItem{Key: 1, Name: "Item1"})

			So(svc.Update(ctx, 1, &model.TodoItem{Key: 1, Name: "Item1", IsComplete: true}), ShouldBeNil)

			got, err = svc.GetByID(ctx, 1)
			So(err, ShouldBeNil)
			So(got.IsComplete, ShouldBeTrue)

			So(svc.Delete(ctx, 1), ShouldBeNil)

			Convey("Then the item is gone", func() {
				_, err := svc.GetByID(ctx, 1)
				So(errors.Is(err, errors.NotFound), ShouldBeTrue)
			})
		})

		Convey("When creating items concurrently", func() {
			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(key int64) {
					defer wg.Done()
					_, err := svc.Create(ctx, &model.TodoItem{Key: key, Name: fmt.Sprintf("item-%d", key)})
					errs <- err
				}(int64(n - i))
			}
			wg.Wait()
			close(errs)

			Convey("Then all of them are listed in key order", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				items, err := svc.ListAll(ctx)
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, n)
				for i, item := range items {
					So(item.Key, ShouldEqual, int64(i+1))
				}
				So(svc.GetStats()["itemCount"], ShouldEqual, n)
			})
		})

		Convey("When an update leaves the item unchanged", func() {
			_, err := svc.Create(ctx, &model.TodoItem{Key: 3, Name: "same", IsComplete: true})
			So(err, ShouldBeNil)

			Convey("Then it still succeeds", func() {
				So(svc.Update(ctx, 3, &model.TodoItem{Key: 3, Name: "same", IsComplete: true}), ShouldBeNil)
			})
		})
	})
}
