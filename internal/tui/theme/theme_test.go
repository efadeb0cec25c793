package theme

import (
	"testing"

	"github.com/theirongolddev/jobmetrics/internal/model"
)

func TestByNameFallsBack(t *testing.T) {
	if got := ByName("tokyo-night").Name; got != "tokyo-night" {
		t.Errorf("ByName(tokyo-night) = %q", got)
	}
	if got := ByName("nope").Name; got != FlexokiDark.Name {
		t.Errorf("ByName(nope) = %q, want %q", got, FlexokiDark.Name)
	}
}

func TestSemanticColors(t *testing.T) {
	th := FlexokiDark
	if th.ForAging(model.Bucket90Plus) != th.Red {
		t.Error("90+ bucket is not red")
	}
	if th.ForAging(model.BucketCurrent) != th.Green {
		t.Error("current bucket is not green")
	}
	if th.ForMargin(-1) != th.Red || th.ForMargin(5) != th.Yellow || th.ForMargin(25) != th.Green {
		t.Error("margin colors out of order")
	}
	if len(Names()) != len(All) {
		t.Errorf("Names() = %d entries, want %d", len(Names()), len(All))
	}
}
