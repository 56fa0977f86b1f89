package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/app"
	"github.com/ent0n29/storyteller/internal/prompt"
	"github.com/ent0n29/storyteller/internal/story"
)

var generateOpts struct {
	prompt   string
	userName string
	language string
	level    string
	module   string
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateOpts.prompt, "prompt", "p", "", "what the listener asks for")
	f.StringVar(&generateOpts.userName, "name", "", "listener name")
	f.StringVar(&generateOpts.language, "language", "", "narration language (code or name)")
	f.StringVar(&generateOpts.level, "level", "", "listener level, e.g. beginner")
	f.StringVar(&generateOpts.module, "module", "", "topic module key")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one pass of the fallback chain and print the passage",
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
		defer func() {
			if err := built.Cleanup(); err != nil {
				logger.Warn("cleanup failed", zap.Error(err))
			}
		}()

		res, err := built.Generator.Generate(cmd.Context(), story.Request{
			Prompt: generateOpts.prompt,
			Identity: prompt.Identity{
				UserName: generateOpts.userName,
				Language: generateOpts.language,
				Level:    generateOpts.level,
				Module:   generateOpts.module,
			},
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s %s]\n", res.Tier, res.Model)
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}
