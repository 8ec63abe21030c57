package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-easy-profiling",
	Short: "go-easy-profiling adds scoped profiling guards to annotated functions in your program source code",
	Long: `go-easy-profiling adds scoped profiling guards to annotated functions in your program source code.

Annotate a package clause, type, function, or named function literal with //flame and every
function below it records a span named after its scope. //noflame opts a node out.`,
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
