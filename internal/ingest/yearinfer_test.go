package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferLatestYear(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"picks max", "Adopted 2015, amended 2021, reviewed 1998.", 2021},
		{"single", "Effective from 1987", 1987},
		{"ignores embedded digits", "ref 120199 and code 20201", 0},
		{"ignores out of range", "in 1850 and 2150", 0},
		{"none", "no dates here", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InferLatestYear(tc.text)
			if tc.want == 0 {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tc.want, *got)
			}
		})
	}
}
