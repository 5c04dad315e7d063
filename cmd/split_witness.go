package cmd

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/collabzk/co-groth16/mpc"
	"github.com/collabzk/co-groth16/r1cs"
	"github.com/collabzk/co-groth16/witness"
)

var (
	fWitness    string
	fProtocol   string
	fParties    int
	fThreshold  int
	fInputsOnly bool
	fOutDir     string
)

var splitCmd = &cobra.Command{
	Use:   "split-witness",
	Short: "split a plain witness into per-party share files (trusted dealer)",
	Run:   runSplit,
}

func runSplit(cmd *cobra.Command, args []string) {
	proto, err := mpc.Lookup(fProtocol)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving protocol")
	}
	if info, err := os.Stat(fOutDir); err != nil || !info.IsDir() {
		log.Fatal().Str("dir", fOutDir).Msg("output directory does not exist")
	}
	cs, err := r1cs.Load(fR1CS)
	if err != nil {
		log.Fatal().Err(err).Msg("loading constraint system")
	}
	w, err := witness.Load(fWitness)
	if err != nil {
		log.Fatal().Err(err).Msg("loading witness")
	}
	if len(w.Values) != cs.NbWires || w.NbPublic != cs.NbPublic {
		log.Fatal().
			Int("witness_wires", len(w.Values)).
			Int("r1cs_wires", cs.NbWires).
			Msg("witness does not match constraint system")
	}
	if err := cs.IsSatisfied(w.Values); err != nil {
		log.Fatal().Err(err).Msg("witness rejected")
	}

	covered := cs.NbWires
	if fInputsOnly {
		covered = r1cs.MinimalCover(cs)
	}

	files, err := witness.Split(w, fProtocol, proto.Scheme, fParties, fThreshold, covered, rand.Reader)
	if err != nil {
		log.Fatal().Err(err).Msg("splitting witness")
	}

	stem := shareStem(fOutDir, fWitness)
	for _, sf := range files {
		path := witness.SharePath(stem, sf.PartyID)
		if err := sf.Save(path); err != nil {
			log.Fatal().Err(err).Msg("writing share file")
		}
		log.Info().Str("file", path).Int("party", sf.PartyID).Msg("share file written")
	}
	if err := witness.SavePublicInputs(witness.PublicPath(stem), w.PublicInputs()); err != nil {
		log.Fatal().Err(err).Msg("writing public inputs")
	}
	log.Info().
		Str("protocol", fProtocol).
		Int("parties", fParties).
		Int("covered", covered).
		Int("wires", cs.NbWires).
		Msg("witness split")
}

// shareStem places the share artifacts in dir, named after the witness.
func shareStem(dir, witnessPath string) string {
	base := strings.TrimSuffix(filepath.Base(witnessPath), ".json")
	return filepath.Join(dir, base)
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().StringVar(&fWitness, "witness", "", "plain witness file")
	splitCmd.Flags().StringVar(&fProtocol, "protocol", "rep3", "secret sharing protocol (rep3 or shamir)")
	splitCmd.Flags().IntVar(&fParties, "parties", 3, "number of parties")
	splitCmd.Flags().IntVar(&fThreshold, "threshold", 1, "corruption threshold")
	splitCmd.Flags().BoolVar(&fInputsOnly, "inputs-only", false, "share only the input wires and let parties derive the rest")
	splitCmd.Flags().StringVar(&fOutDir, "out-dir", ".", "directory the share files are written to")
	splitCmd.MarkFlagRequired("witness")
}
