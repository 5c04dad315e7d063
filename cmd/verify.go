package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/collabzk/co-groth16/groth16"
	"github.com/collabzk/co-groth16/witness"
)

var (
	fVk     string
	fProof  string
	fPublic string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "verify a proof against the verifying key and public inputs",
	Run:   runVerify,
}

func runVerify(cmd *cobra.Command, args []string) {
	var vk groth16.VerifyingKey
	if err := groth16.LoadKey(fVk, &vk); err != nil {
		log.Fatal().Err(err).Msg("loading verifying key")
	}
	proof, err := groth16.LoadProof(fProof)
	if err != nil {
		log.Fatal().Err(err).Msg("loading proof")
	}
	inputs, err := witness.LoadPublicInputs(fPublic)
	if err != nil {
		log.Fatal().Err(err).Msg("loading public inputs")
	}
	if err := groth16.Verify(proof, &vk, inputs); err != nil {
		log.Fatal().Err(err).Msg("proof rejected")
	}
	log.Info().Msg("proof accepted")
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&fVk, "vk", "vk.bin", "verifying key")
	verifyCmd.Flags().StringVar(&fProof, "proof", "proof.json", "proof file")
	verifyCmd.Flags().StringVar(&fPublic, "public", "", "public inputs file")
	verifyCmd.MarkFlagRequired("public")
}
