package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	for _, tc := range []struct {
		iso  string
		want string
	}{
		{iso: "PT45M", want: "45:00"},
		{iso: "PT45M0S", want: "45:00"},
		{iso: "PT1H5M9S", want: "1:05:09"},
		{iso: "PT9S", want: "0:09"},
		{iso: "PT2H", want: "2:00:00"},
		{iso: "PT", want: ""},
		{iso: "", want: ""},
		{iso: "not a duration", want: ""},
	} {
		assert.Equal(t, tc.want, FormatDuration(tc.iso), "input %q", tc.iso)
	}
}
