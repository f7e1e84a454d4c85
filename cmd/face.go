package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenscorch/screenscorch/internal/config"
	"github.com/screenscorch/screenscorch/internal/extract"
	"github.com/screenscorch/screenscorch/internal/faces"
)

var faceCmd = &cobra.Command{
	Use:   "face",
	Short: "Manage known faces",
}

var faceTagCmd = &cobra.Command{
	Use:   "tag <name> <image>",
	Short: "Tag a person's face from a reference image",
	Long: `Detect the face in a reference image and store its embedding under the
given name. The image must contain exactly one face. Searching for the name
afterwards returns every indexed screenshot that person appears in.

Examples:
  screenscorch face tag alice ~/Pictures/alice.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runFaceTag,
}

var faceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known face names",
	RunE:  runFaceList,
}

func init() {
	rootCmd.AddCommand(faceCmd)
	faceCmd.AddCommand(faceTagCmd)
	faceCmd.AddCommand(faceListCmd)
}

func runFaceTag(cmd *cobra.Command, args []string) error {
	name, imagePath := args[0], args[1]

	ctx := context.Background()
	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create app directory: %w", err)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", imagePath, err)
	}

	detected, err := extract.NewClient(cfg.Embedding.URL).DetectFaces(ctx, data)
	if err != nil {
		return fmt.Errorf("face detection failed: %w", err)
	}
	if len(detected) == 0 {
		return fmt.Errorf("no face found in %s", imagePath)
	}
	if len(detected) > 1 {
		return fmt.Errorf("found %d faces in %s; use an image with exactly one face", len(detected), imagePath)
	}

	if err := faces.Save(cfg.KnownFacesFile(), name, detected[0].Embedding); err != nil {
		return err
	}

	fmt.Printf("Tagged %s\n", faces.DisplayName(faces.Normalize(name)))
	return nil
}

func runFaceList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	known := loadKnownFaces(cfg)

	if len(known) == 0 {
		fmt.Println("No known faces. Tag one with 'screenscorch face tag <name> <image>'.")
		return nil
	}
	for _, name := range known.Names() {
		fmt.Println(faces.DisplayName(name))
	}
	return nil
}
