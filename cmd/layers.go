package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agrodatalab/upa-access/internal/access"
	"github.com/agrodatalab/upa-access/internal/layer"
)

var layersManifest string

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Inspect the layers named by a manifest",
	Long:  "Loads every layer in the manifest and prints its feature count, attribute fields, and the identifier and name columns the heuristic would pick.",
	RunE:  runLayers,
}

func init() {
	layersCmd.Flags().StringVar(&layersManifest, "manifest", "layers.yaml", "path to the layer manifest")
	rootCmd.AddCommand(layersCmd)
}

func runLayers(cmd *cobra.Command, args []string) error {
	manifest, err := layer.LoadManifest(layersManifest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	refs := append([]layer.Ref{manifest.Origins}, manifest.Facilities...)
	for i, ref := range refs {
		role := "facility"
		if i == 0 {
			role = "origins"
		}

		l, err := layer.Load(ref)
		if err != nil {
			fmt.Fprintf(out, "%s (%s): unavailable: %v\n", ref.Name, role, err)
			continue
		}

		cols := access.ResolveColumns(l.Fields)
		idField, nameField := "-", "-"
		if cols.ID >= 0 && cols.ID < len(l.Fields) {
			idField = l.Fields[cols.ID]
		}
		if cols.Name >= 0 && cols.Name < len(l.Fields) {
			nameField = l.Fields[cols.Name]
		}

		fmt.Fprintf(out, "%s (%s): %d features\n", ref.Name, role, l.Len())
		fmt.Fprintf(out, "  fields: %s\n", strings.Join(l.Fields, ", "))
		fmt.Fprintf(out, "  id: %s  name: %s", idField, nameField)
		if cols.Fallback {
			fmt.Fprint(out, "  (positional fallback)")
		}
		fmt.Fprintln(out)
	}
	return nil
}
