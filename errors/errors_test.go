package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_IsIndexRequired_Matches_Planner_Messages(t *testing.T) {
	req := require.New(t)

	req.True(IsIndexRequired(fmt.Errorf("the query requires an index on (room, timestamp)")))
	req.True(IsIndexRequired(fmt.Errorf("FAILED_PRECONDITION: No matching index found")))
	req.True(IsIndexRequired(fmt.Errorf("listen: index not found for filter")))
}

func Test_IsIndexRequired_Ignores_Other_Faults(t *testing.T) {
	req := require.New(t)

	req.False(IsIndexRequired(nil))
	req.False(IsIndexRequired(fmt.Errorf("connection reset by peer")))
	req.False(IsIndexRequired(ErrDecode))
}
