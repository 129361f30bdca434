package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "whitespace only",
			in:   "  \n\t ",
			want: nil,
		},
		{
			name: "basic split",
			in:   "We argue the denial is invalid. This concludes our request.",
			want: []string{"We argue the denial is invalid.", "This concludes our request."},
		},
		{
			name: "newlines collapse to spaces",
			in:   "First sentence ends here.\n\nSecond one follows.",
			want: []string{"First sentence ends here.", "Second one follows."},
		},
		{
			name: "mid-sentence numeral is not a boundary",
			in:   "See section 4.2 of the policy. It applies here.",
			want: []string{"See section 4.2 of the policy.", "It applies here."},
		},
		{
			name: "lowercase continuation is not a boundary",
			in:   "The procedure is safe, e.g. for adults. Next point.",
			want: []string{"The procedure is safe, e.g. for adults.", "Next point."},
		},
		{
			name: "question and exclamation marks",
			in:   "Why was this denied? We do not know! The record is clear.",
			want: []string{"Why was this denied?", "We do not know!", "The record is clear."},
		},
		{
			name: "digit starts next sentence",
			in:   "The appeal cites two studies. 14 patients improved.",
			want: []string{"The appeal cites two studies.", "14 patients improved."},
		},
		{
			name: "no trailing punctuation keeps remainder",
			in:   "First part. Second part without a period",
			want: []string{"First part.", "Second part without a period"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestSplitSentencesIdempotent(t *testing.T) {
	in := "We argue the denial is invalid. This concludes our request."
	first := SplitSentences(in)
	second := SplitSentences(in)
	assert.Equal(t, first, second)
}

func TestClassify(t *testing.T) {
	j := New(DefaultConfig(), zap.NewNop())

	got := j.classify([]string{
		"The clinical study supports approval.",
		"Thank you for your time.",
		"We ARGUE the denial is invalid.",
	})
	require.Len(t, got, 3)

	assert.Equal(t, LabelClaim, got[0].Label)
	assert.Equal(t, LabelNonClaim, got[1].Label)
	assert.Equal(t, LabelClaim, got[2].Label, "keyword match is case-insensitive")

	for i, s := range got {
		assert.Equal(t, i, s.Index)
		assert.Zero(t, s.Score)
		assert.Empty(t, s.Matches.Auditor)
	}
}

func TestClassifyCustomKeywords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClaimKeywords = []string{"reimbursement"}
	j := New(cfg, zap.NewNop())

	got := j.classify([]string{
		"The clinical study supports approval.",
		"We request reimbursement for the procedure.",
	})
	assert.Equal(t, LabelNonClaim, got[0].Label, "default keywords are replaced, not merged")
	assert.Equal(t, LabelClaim, got[1].Label)
}
