package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "screenscorch",
	Short: "Index and search your screenshots",
	Long: `ScreenScorch indexes the screenshots and photos on your disk (OCR text,
visual embeddings, face embeddings) and searches them with a single query:
exact keywords, fuzzy keywords, semantic similarity, or a person's name.
It also finds exact and near-duplicate images for cleanup.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
