package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "artist_names", NormalizeName("  Artist_Names \n"))
	require.Equal(t, "sodapop", NormalizeName("Soda Pop"))
}

func TestCleanList(t *testing.T) {
	require.Equal(t,
		[]string{"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", "Tyler, The Creator"},
		CleanList([]string{" TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", "", "  ", "Tyler, The Creator "}),
	)
	require.Nil(t, CleanList(nil))
}
