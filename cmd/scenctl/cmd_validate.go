package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noogrub/fieldnet/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <run_directory>",
		Short: "Validate a scenario directory without compiling anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := scenario.LoadDir(args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"valid":         true,
					"scenario_hash": s.Hash,
					"segments":      len(s.Schedule.Segments),
				})
			}
			fmt.Printf("valid: %s (%d segments, hash %s)\n",
				args[0], len(s.Schedule.Segments), s.ShortHash())
			return nil
		},
	}
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <run_directory>",
		Short: "Print the scenario's canonical content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := scenario.LoadDir(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{
					"scenario_hash": s.Hash,
					"hash_short":    s.ShortHash(),
				})
			}
			fmt.Println(s.Hash)
			return nil
		},
	}
}
