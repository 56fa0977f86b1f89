package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ent0n29/storyteller/internal/app"
	"github.com/ent0n29/storyteller/internal/voice"
)

var voicesLanguage string

func init() {
	voicesCmd.Flags().StringVar(&voicesLanguage, "language", "", "only list voices for this language")
	rootCmd.AddCommand(voicesCmd)
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Print the language-filtered voice catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		built, err := app.Build(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = built.Cleanup() }()

		voices, err := built.Catalog.Voices(cmd.Context())
		if err != nil {
			return err
		}
		voices = voice.ForLanguage(voices, voicesLanguage)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tLANGUAGE")
		for _, v := range voices {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Name, v.LanguageTag)
		}
		return tw.Flush()
	},
}
