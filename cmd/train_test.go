package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCandidates(t *testing.T) {
	t.Run("default is all five", func(t *testing.T) {
		cands, err := selectCandidates(nil, 5)
		require.NoError(t, err)
		require.Len(t, cands, 5)
		names := make([]string, len(cands))
		for i, c := range cands {
			names[i] = c.Name()
		}
		assert.Equal(t, []string{"linear", "elastic_net", "glm_poisson", "additive_hinge", "tree_cart"}, names)
	})

	t.Run("subset", func(t *testing.T) {
		cands, err := selectCandidates([]string{"linear", "tree_cart"}, 5)
		require.NoError(t, err)
		require.Len(t, cands, 2)
		assert.Equal(t, "linear", cands[0].Name())
		assert.Equal(t, "tree_cart", cands[1].Name())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := selectCandidates([]string{"xgboost"}, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "xgboost")
	})
}
