package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	// protocol backends register themselves
	_ "github.com/collabzk/co-groth16/mpc/rep3"
	_ "github.com/collabzk/co-groth16/mpc/shamir"
)

var (
	fR1CS    string
	fVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "co-groth16",
	Short: "collaborative Groth16 proving over secret-shared witnesses",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if fVerbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&fR1CS, "r1cs", "circuit.json", "constraint system artifact")
	rootCmd.PersistentFlags().BoolVar(&fVerbose, "verbose", false, "enable debug logging")
}
