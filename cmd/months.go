package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

func newMonthsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List the months a scan can target",
		Run: func(cmd *cobra.Command, args []string) {
			now := time.Now()
			for _, m := range availability.CandidateMonths(now) {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s %d\n", int(m), m, availability.InferYear(m, now))
			}
		},
	}
}
