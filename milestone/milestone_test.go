package milestone_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/warp/card-ledger/milestone"
)

func keys(defs []milestone.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Key
	}
	return out
}

func TestCheckCrossed(t *testing.T) {
	Convey("Given the milestone ladder", t, func() {
		Convey("When a collection grows from 9 to 10 cards", func() {
			d, ok := milestone.CheckCrossed(9, 10)

			Convey("Then milestone_10 is reached", func() {
				So(ok, ShouldBeTrue)
				So(d.Key, ShouldEqual, "milestone_10")
				So(d.Threshold, ShouldEqual, 10)
			})
		})

		Convey("When a collection shrinks from 10 to 9 cards", func() {
			_, ok := milestone.CheckCrossed(10, 9)

			Convey("Then nothing is reached", func() {
				So(ok, ShouldBeFalse)
				So(milestone.AllCrossed(10, 9), ShouldBeEmpty)
			})
		})

		Convey("When a bulk add jumps from 9 to 55 cards", func() {
			d, ok := milestone.CheckCrossed(9, 55)
			all := milestone.AllCrossed(9, 55)

			Convey("Then the highest crossed is milestone_50", func() {
				So(ok, ShouldBeTrue)
				So(d.Key, ShouldEqual, "milestone_50")
			})

			Convey("And every crossed milestone is listed in order", func() {
				So(keys(all), ShouldResemble, []string{"milestone_10", "milestone_50"})
			})
		})

		Convey("When the count does not change", func() {
			_, ok := milestone.CheckCrossed(50, 50)

			Convey("Then nothing is reached", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a collection starts from zero", func() {
			d, ok := milestone.CheckCrossed(0, 1)

			Convey("Then the first card milestone is light", func() {
				So(ok, ShouldBeTrue)
				So(d.Key, ShouldEqual, "milestone_1")
				So(d.Intensity, ShouldEqual, milestone.IntensityLight)
			})
		})
	})
}

func TestCheckCrossed_NeverOnDecrease(t *testing.T) {
	Convey("Given any non-increasing pair of counts", t, func() {
		for prev := 0; prev <= 1100; prev += 7 {
			for _, next := range []int{prev, prev - 1, prev / 2, 0} {
				_, ok := milestone.CheckCrossed(prev, next)
				So(ok, ShouldBeFalse)
			}
		}
	})
}

func TestProgress(t *testing.T) {
	Convey("Given a collector's card count", t, func() {
		Convey("When they have no cards", func() {
			p := milestone.ProgressFor(0)

			Convey("Then the first milestone is next and progress is zero", func() {
				So(p.Current, ShouldBeNil)
				So(p.Next.Key, ShouldEqual, "milestone_1")
				So(p.CardsToNext, ShouldEqual, 1)
				So(p.Percent, ShouldEqual, 0)
			})
		})

		Convey("When they have 30 cards", func() {
			p := milestone.ProgressFor(30)

			Convey("Then progress is measured from 10 to 50", func() {
				So(p.Current.Key, ShouldEqual, "milestone_10")
				So(p.Next.Key, ShouldEqual, "milestone_50")
				So(p.CardsToNext, ShouldEqual, 20)
				So(p.Percent, ShouldEqual, 50)
			})
		})

		Convey("When they sit exactly on a threshold", func() {
			p := milestone.ProgressFor(100)

			Convey("Then that milestone is current and the span restarts", func() {
				So(p.Current.Key, ShouldEqual, "milestone_100")
				So(p.Next.Key, ShouldEqual, "milestone_250")
				So(p.Percent, ShouldEqual, 0)
			})
		})

		Convey("When every milestone is reached", func() {
			p := milestone.ProgressFor(5000)

			Convey("Then progress saturates at 100", func() {
				So(p.Current.Key, ShouldEqual, "milestone_1000")
				So(p.Next, ShouldBeNil)
				So(p.CardsToNext, ShouldEqual, 0)
				So(p.Percent, ShouldEqual, 100)
			})
		})
	})
}

func TestUncelebrated(t *testing.T) {
	Convey("Given milestones crossed in one step", t, func() {
		crossed := milestone.AllCrossed(0, 60)

		Convey("When some were celebrated before", func() {
			left := milestone.Uncelebrated(crossed, map[string]bool{"milestone_1": true})

			Convey("Then only the new ones remain", func() {
				So(keys(left), ShouldResemble, []string{"milestone_10", "milestone_50"})
			})
		})
	})
}

func TestLadder(t *testing.T) {
	Convey("Given the milestone definitions", t, func() {
		all := milestone.All()

		Convey("Then thresholds ascend strictly", func() {
			So(len(all), ShouldEqual, 7)
			for i := 1; i < len(all); i++ {
				So(all[i].Threshold, ShouldBeGreaterThan, all[i-1].Threshold)
			}
		})

		Convey("And lookups by key work", func() {
			d, ok := milestone.ByKey("milestone_1000")
			So(ok, ShouldBeTrue)
			So(d.Intensity, ShouldEqual, milestone.IntensityEpic)

			_, ok = milestone.ByKey("milestone_2")
			So(ok, ShouldBeFalse)
		})
	})
}
