package cmd

import (
	"encoding/json"
	"net/http"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/collabzk/co-groth16/groth16"
)

var fListen string

var webApiCmd = &cobra.Command{
	Use:   "web-api",
	Short: "runs a web server exposing proof verification",
	Run:   runApi,
}

func healthCheck(c *gin.Context) {
	response := gin.H{
		"status":  "ok",
		"message": "Health check passed",
	}

	c.JSON(http.StatusOK, response)
}

type verifyRequest struct {
	Proof        json.RawMessage `json:"proof"`
	PublicInputs []string        `json:"inputs"`
}

func verifyProof(vk *groth16.VerifyingKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var proof groth16.Proof
		if err := json.Unmarshal(req.Proof, &proof); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inputs := make([]fr.Element, len(req.PublicInputs))
		for i, s := range req.PublicInputs {
			if _, err := inputs[i].SetString(s); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if err := groth16.Verify(&proof, vk, inputs); err != nil {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": true})
	}
}

func runApi(cmd *cobra.Command, args []string) {
	var vk groth16.VerifyingKey
	if err := groth16.LoadKey(fVk, &vk); err != nil {
		log.Fatal().Err(err).Msg("loading verifying key")
	}
	router := gin.Default()
	router.GET("/health", healthCheck)
	router.POST("/verify", verifyProof(&vk))
	router.Run(fListen)
}

func init() {
	rootCmd.AddCommand(webApiCmd)
	webApiCmd.Flags().StringVar(&fListen, "listen", "0.0.0.0:8010", "listen address")
	webApiCmd.Flags().StringVar(&fVk, "vk", "vk.bin", "verifying key")
}
