package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wolfman30/careconnect/internal/admins"
	"github.com/wolfman30/careconnect/internal/app/bootstrap"
	"github.com/wolfman30/careconnect/internal/auth"
	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// adminCreator persists a new admin account.
type adminCreator interface {
	Create(ctx context.Context, req admins.CreateRequest) (*admins.Admin, error)
}

// openAdmins connects to the database behind DATABASE_URL. The returned
// func releases the connection.
type openAdmins func(ctx context.Context, databaseURL string, logger *logging.Logger) (adminCreator, func(), error)

func main() {
	if err := newRootCmd(viper.New(), os.Stdout, postgresAdmins).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper, out io.Writer, open openAdmins) *cobra.Command {
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "careconnectctl",
		Short:        "Operator tooling for the careconnect API",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(adminCmd(v, open))
	root.AddCommand(tokenCmd(v))
	return root
}

func adminCmd(v *viper.Viper, open openAdmins) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account (superadmin by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			databaseURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
			if databaseURL == "" {
				return errors.New("DATABASE_URL is required (flag --database-url or env)")
			}
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			if password == "" {
				password = v.GetString("ADMIN_PASSWORD")
			}

			logger := logging.New(v.GetString("LOG_LEVEL"))
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			svc, closeFn, err := open(ctx, databaseURL, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			req := admins.CreateRequest{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     role,
			}
			if role == auth.RoleAdmin {
				req.Permissions = admins.Permissions{ManageDoctors: true, ManagePatients: true, ManagePricing: true}
			}
			admin, err := svc.Create(ctx, req)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", admin.Role, admin.Email, admin.ID)
			return nil
		},
	}
	create.Flags().String("name", "Administrator", "display name")
	create.Flags().String("email", "", "login email")
	create.Flags().String("password", "", "login password (falls back to ADMIN_PASSWORD)")
	create.Flags().String("role", auth.RoleSuperAdmin, "admin or superadmin")
	create.Flags().String("database-url", "", "postgres connection string")
	_ = v.BindPFlag("DATABASE_URL", create.Flags().Lookup("database-url"))
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func tokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with API access tokens",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Mint a signed access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")
			perms, _ := cmd.Flags().GetStringSlice("perm")

			switch role {
			case auth.RolePatient, auth.RoleDoctor, auth.RoleAdmin, auth.RoleSuperAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			issuer, err := auth.NewIssuer(v.GetString("JWT_SECRET"), v.GetDuration("JWT_TTL"))
			if err != nil {
				return err
			}
			token, exp, err := issuer.Issue(subject, role, perms)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().String("subject", "", "token subject (account id)")
	issue.Flags().String("role", auth.RolePatient, "patient, doctor, admin or superadmin")
	issue.Flags().StringSlice("perm", nil, "admin permission to embed (repeatable)")
	issue.Flags().String("jwt-secret", "", "signing secret")
	issue.Flags().Duration("ttl", time.Hour, "token lifetime")
	_ = v.BindPFlag("JWT_SECRET", issue.Flags().Lookup("jwt-secret"))
	_ = v.BindPFlag("JWT_TTL", issue.Flags().Lookup("ttl"))
	_ = issue.MarkFlagRequired("subject")

	cmd.AddCommand(issue)
	return cmd
}

func postgresAdmins(ctx context.Context, databaseURL string, logger *logging.Logger) (adminCreator, func(), error) {
	pool, err := bootstrap.BuildPostgresPool(ctx, &appconfig.Config{DatabaseURL: databaseURL})
	if err != nil {
		return nil, nil, err
	}
	return admins.NewService(admins.NewPostgresRepository(pool), nil, logger), pool.Close, nil
}
