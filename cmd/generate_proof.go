package cmd

import (
	"context"
	"crypto/rand"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/collabzk/co-groth16/groth16"
	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/mpcnet"
	"github.com/collabzk/co-groth16/r1cs"
	"github.com/collabzk/co-groth16/witness"
)

var (
	fShareFile   string
	fZkey        string
	fConfig      string
	fProofOut    string
	fGenProtocol string
)

var generateCmd = &cobra.Command{
	Use:   "generate-proof",
	Short: "run one party of a collaborative proving session",
	Run:   runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) {
	sf, err := witness.LoadShareFile(fShareFile)
	if err != nil {
		log.Fatal().Err(err).Msg("loading share file")
	}
	if fGenProtocol != "" && fGenProtocol != sf.Protocol {
		log.Fatal().
			Str("flag", fGenProtocol).
			Str("share_file", sf.Protocol).
			Msg("protocol does not match share file")
	}
	proto, err := mpc.Lookup(sf.Protocol)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving protocol")
	}
	cs, err := r1cs.Load(fR1CS)
	if err != nil {
		log.Fatal().Err(err).Msg("loading constraint system")
	}
	if sf.NbWires != cs.NbWires {
		log.Fatal().
			Int("share_wires", sf.NbWires).
			Int("r1cs_wires", cs.NbWires).
			Msg("share file does not match constraint system")
	}
	var pk groth16.ProvingKey
	if err := groth16.LoadKey(fZkey, &pk); err != nil {
		log.Fatal().Err(err).Msg("loading proving key")
	}
	netCfg, err := mpcnet.LoadPartyConfig(fConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("loading party config")
	}
	if netCfg.ID != sf.PartyID || netCfg.NumParties() != sf.NumParties {
		log.Fatal().
			Int("config_party", netCfg.ID).
			Int("share_party", sf.PartyID).
			Msg("party config does not match share file")
	}

	ctx := context.Background()
	transport, err := mpcnet.DialTCP(ctx, netCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to peers")
	}
	defer transport.Close()

	drv, err := proto.NewDriver(ctx, transport, mpc.Config{
		PartyID:    sf.PartyID,
		NumParties: sf.NumParties,
		Threshold:  sf.Threshold,
		Rng:        rand.Reader,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("starting protocol driver")
	}

	shares := make([]mpc.Share, cs.NbWires)
	copy(shares, sf.Shares)

	prover := groth16.NewProver(drv, &pk)
	proof, err := prover.Prove(ctx, cs, shares, sf.Covered)
	if err != nil {
		log.Fatal().Err(err).Msg("proving session failed")
	}
	if err := proof.Save(fProofOut); err != nil {
		log.Fatal().Err(err).Msg("writing proof")
	}
	log.Info().Str("file", fProofOut).Msg("proof written")
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&fShareFile, "witness", "", "this party's witness share file")
	generateCmd.Flags().StringVar(&fZkey, "zkey", "pk.bin", "proving key")
	generateCmd.Flags().StringVar(&fGenProtocol, "protocol", "", "expected protocol, cross-checked against the share file header")
	generateCmd.Flags().StringVar(&fConfig, "config", "party.toml", "party network config")
	generateCmd.Flags().StringVar(&fProofOut, "out", "proof.json", "proof output")
	generateCmd.MarkFlagRequired("witness")
}
