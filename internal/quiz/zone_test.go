package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReadinessBoundaries(t *testing.T) {
	cases := []struct {
		total int
		want  Zone
	}{
		{0, ZoneRed},
		{6, ZoneRed},
		{7, ZoneYellow},
		{11, ZoneYellow},
		{12, ZoneGreen},
		{16, ZoneGreen},
		{17, ZoneGreen}, // above the theoretical max clamps to green
		{100, ZoneGreen},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyReadiness(tc.total), "total=%d", tc.total)
	}
}

func TestDefaultQuestionsShape(t *testing.T) {
	qs := DefaultQuestions()

	readinessMax := 0
	fearCount := 0
	for i, q := range qs {
		assert.Equal(t, i, q.Index)
		assert.NotEmpty(t, q.Options)
		if q.Section == SectionFear {
			fearCount++
			continue
		}
		best := 0
		for _, o := range q.Options {
			if o.Score > best {
				best = o.Score
			}
		}
		readinessMax += best
	}

	assert.Equal(t, 5, fearCount)
	// The green band tops out at the theoretical readiness maximum.
	assert.Equal(t, 16, readinessMax)
}
