package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitWitnessFlagSurface(t *testing.T) {
	for _, name := range []string{"witness", "protocol", "parties", "threshold", "inputs-only", "out-dir"} {
		require.NotNil(t, splitCmd.Flags().Lookup(name), name)
	}
}

func TestGenerateProofFlagSurface(t *testing.T) {
	for _, name := range []string{"witness", "zkey", "protocol", "config", "out"} {
		require.NotNil(t, generateCmd.Flags().Lookup(name), name)
	}
}

func TestShareStemPlacesFilesInOutDir(t *testing.T) {
	stem := shareStem(filepath.Join("some", "dir"), filepath.Join("else", "witness.json"))
	require.Equal(t, filepath.Join("some", "dir", "witness"), stem)
}
