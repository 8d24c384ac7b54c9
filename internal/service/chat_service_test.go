package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWantsDocumentContext(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Generate Quiz please", true},
		{"generate quiz", true},
		{"what does the DOCUMENT say about fees", true},
		{"summarize my documents", true},
		{"hello", false},
		{"when is the exam", false},
		{"generate a quiz", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, wantsDocumentContext(tc.text), "text=%q", tc.text)
	}
}
