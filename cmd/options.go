package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/spf13/cobra"
)

// optionsCmd は選べる値の一覧を表示するのだ。
var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "アスペクト比やライティングなど、選べる値の一覧を表示するのだ",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

		fmt.Fprintln(w, "ASPECT\tLABEL")
		for _, a := range domain.AspectRatios {
			fmt.Fprintf(w, "%s\t%s\n", a, a.Label())
		}
		fmt.Fprintln(w, "\nRESOLUTION\tLABEL")
		for _, r := range domain.Resolutions {
			fmt.Fprintf(w, "%s\t%s\n", r, r.Label())
		}
		fmt.Fprintln(w, "\nRENDER")
		for _, m := range domain.RenderModes {
			fmt.Fprintln(w, m)
		}
		fmt.Fprintln(w, "\nLIGHTING")
		for _, l := range domain.LightingStyles {
			fmt.Fprintln(w, l)
		}
		fmt.Fprintln(w, "\nCAMERA")
		for _, c := range domain.CameraAngles {
			fmt.Fprintln(w, c)
		}

		d := cfg.Defaults
		fmt.Fprintf(w, "\nDEFAULTS\t%s / %s / %s / %s / %s / transparent=%t\n",
			d.CameraAngle, d.AspectRatio, d.RenderMode, d.Lighting, d.Resolution, d.IsTransparentMode)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}
