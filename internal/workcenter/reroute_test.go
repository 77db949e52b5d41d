package workcenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerouteWorkflow(t *testing.T) {
	t.Run("closed dialog rejects edits", func(t *testing.T) {
		var r RerouteWorkflow
		assert.ErrorIs(t, r.SelectBureau(1), ErrRerouteClosed)
		assert.ErrorIs(t, r.SetReason("x"), ErrRerouteClosed)
		_, err := r.Request(7)
		assert.ErrorIs(t, err, ErrRerouteClosed)
	})

	t.Run("switching bureau clears the division", func(t *testing.T) {
		var r RerouteWorkflow
		r.Open(sampleDepartments())
		require.NoError(t, r.SelectBureau(1))
		require.Len(t, r.Divisions(), 2)
		require.NoError(t, r.SelectDivision(10))
		require.NoError(t, r.SetReason("belongs to traffic"))
		require.True(t, r.CanSubmit())

		require.NoError(t, r.SelectBureau(2))
		assert.Nil(t, r.Selection().DivisionID)
		assert.False(t, r.CanSubmit())
		require.Len(t, r.Divisions(), 1)
		assert.Equal(t, int64(20), r.Divisions()[0].ID)
		assert.ErrorIs(t, r.SelectDivision(10), ErrUnknownDepartment)
	})

	t.Run("only bureaus are selectable as bureau", func(t *testing.T) {
		var r RerouteWorkflow
		r.Open(sampleDepartments())
		assert.ErrorIs(t, r.SelectBureau(10), ErrUnknownDepartment)
		assert.ErrorIs(t, r.SelectBureau(99), ErrUnknownDepartment)
	})

	t.Run("blank reason disables submission", func(t *testing.T) {
		var r RerouteWorkflow
		r.Open(sampleDepartments())
		require.NoError(t, r.SelectBureau(1))
		require.NoError(t, r.SelectDivision(11))
		for _, reason := range []string{"", "   ", "\n\t"} {
			require.NoError(t, r.SetReason(reason))
			assert.False(t, r.CanSubmit())
			_, err := r.Request(7)
			assert.ErrorIs(t, err, ErrRerouteIncomplete)
		}
	})

	t.Run("request and reset", func(t *testing.T) {
		var r RerouteWorkflow
		r.Open(sampleDepartments())
		require.NoError(t, r.SelectBureau(1))
		require.NoError(t, r.SelectDivision(11))
		require.NoError(t, r.SetReason("wrong department"))

		req, err := r.Request(7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), req.ComplaintID)
		assert.Equal(t, int64(11), req.TargetDepartmentID)
		assert.Equal(t, "wrong department", req.Reason)

		r.Cancel()
		assert.False(t, r.IsOpen())
		assert.Equal(t, "wrong department", r.Reason())

		r.Reset()
		assert.False(t, r.IsOpen())
		assert.Nil(t, r.Selection().BureauID)
		assert.Nil(t, r.Selection().DivisionID)
		assert.Empty(t, r.Reason())
	})
}
