package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
)

func init() { //nolint: gochecknoinits
	passwordCmd.PersistentFlags().StringVar(&algorithm, "algorithm", credential.AlgorithmArgon2id,
		"Hashing algorithm, argon2id or bcrypt")
	passwordCmd.PersistentFlags().StringVar(&validityRule, "rule", credential.RuleMinLength,
		"Validity rule, min-length or all-rules")

	passwordCmd.AddCommand(hashCmd, scoreCmd)
	rootCmd.AddCommand(passwordCmd)
}

var (
	algorithm    string
	validityRule string

	passwordCmd = &cobra.Command{
		Use:   "password",
		Short: "Password utilities",
	}

	hashCmd = &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the digest of a password, e.g. to seed a user by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := newCodec()
			if err != nil {
				return err
			}

			digest, err := codec.Hash(args[0])
			if err != nil {
				return err //nolint:wrapcheck
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), digest)

			return err //nolint:wrapcheck
		},
	}

	scoreCmd = &cobra.Command{
		Use:   "score <password>",
		Short: "Print the strength of a password as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := newCodec()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(codec.ScoreStrength(args[0])) //nolint:wrapcheck
		},
	}
)

func newCodec() (*credential.Codec, error) {
	codec, err := credential.New(credential.Config{Algorithm: algorithm, ValidityRule: validityRule})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return codec, nil
}
