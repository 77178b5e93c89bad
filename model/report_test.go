package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	report := BuildReport{
		Succeeded: []string{"https://a.example/docs", "https://b.example/docs"},
		Failed: []SourceFailure{
			{URL: "https://c.example/docs", Stage: StatusValidating, Reason: "TooShort"},
		},
		Skipped:   []string{"https://d.example/docs"},
		Cancelled: []string{"https://e.example/docs"},
	}

	t.Run("Processed counts every terminal status", func(t *testing.T) {
		assert.Equal(t, 5, report.Processed())
	})

	t.Run("FailureFor finds the failure record", func(t *testing.T) {
		failure := report.FailureFor("https://c.example/docs")
		require.NotNil(t, failure)
		assert.Equal(t, StatusValidating, failure.Stage)
		assert.Equal(t, "TooShort", failure.Reason)
	})

	t.Run("FailureFor returns nil for successful source", func(t *testing.T) {
		assert.Nil(t, report.FailureFor("https://a.example/docs"))
	})
}
