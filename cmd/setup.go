package cmd

import (
	"crypto/rand"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/collabzk/co-groth16/groth16"
	"github.com/collabzk/co-groth16/r1cs"
)

var (
	fPkOut string
	fVkOut string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "run the circuit-specific trusted setup and write the key pair",
	Run:   runSetup,
}

func runSetup(cmd *cobra.Command, args []string) {
	cs, err := r1cs.Load(fR1CS)
	if err != nil {
		log.Fatal().Err(err).Msg("loading constraint system")
	}
	pk, vk, err := groth16.Setup(cs, rand.Reader)
	if err != nil {
		log.Fatal().Err(err).Msg("trusted setup failed")
	}
	if err := groth16.SaveKey(fPkOut, pk); err != nil {
		log.Fatal().Err(err).Msg("writing proving key")
	}
	if err := groth16.SaveKey(fVkOut, vk); err != nil {
		log.Fatal().Err(err).Msg("writing verifying key")
	}
	log.Info().Str("pk", fPkOut).Str("vk", fVkOut).Msg("setup artifacts written")
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVar(&fPkOut, "pk", "pk.bin", "proving key output")
	setupCmd.Flags().StringVar(&fVkOut, "vk", "vk.bin", "verifying key output")
}
