package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mentorgate",
	Short: "TechMentor backend gateway for the upstream model API",
	Long: `Mentorgate fronts a chat-completion API for the TechMentor product:
it admits a bounded number of concurrent requests, queues the overflow,
relays streamed replies, reviews uploaded documents and keeps per-session
conversation history.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".mentorgate.yml", "config file path")
}
