package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

// seedPrincipal is the caller recorded for credentials created from the CLI.
var seedPrincipal = domain.Principal{Username: "system", Role: domain.RoleAdmin}

func newSeedAdminCmd(opts *rootOptions) *cobra.Command {
	var in ports.RegisterInput

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an ADMIN credential and its investor record",
		Long: "Create an ADMIN credential and its investor record. Running it again " +
			"for an existing username is a no-op. The password may also be given in ADMIN_PASSWORD.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("ADMIN_PASSWORD")
			}

			a, err := newApp(cmd.Context(), opts.cfg, false, opts.log)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.Background()) }()

			cred, err := seedAdmin(cmd.Context(), a.auth, in, opts.log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "admin %q ready\n", cred)
			return err
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&in.NationalID, "national-id", "", "admin CPF (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "admin e-mail")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "admin display name")
	_ = cmd.MarkFlagRequired("national-id")
	return cmd
}

// seedAdmin registers in as an ADMIN credential. An existing username is
// reported as success; any other conflict is an error.
func seedAdmin(ctx context.Context, auth ports.AuthService, in ports.RegisterInput, log zerolog.Logger) (string, error) {
	in.Role = string(domain.RoleAdmin)
	caller := seedPrincipal
	in.Caller = &caller

	cred, err := auth.Register(ctx, in)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) && de.Kind == domain.KindConflict && de.Field == "username" {
			log.Info().Str("username", in.Username).Msg("admin already present")
			return in.Username, nil
		}
		return "", fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("username", cred.Username).Msg("admin created")
	return cred.Username, nil
}
