package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stage-planner/internal/repository"
	"stage-planner/internal/service"
	"stage-planner/pkg/jwt"
)

func newRegisseurCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regisseur",
		Short: "Gestion des comptes régisseur",
	}

	in := &service.RegisseurInput{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Crée un compte régisseur et son profil",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			repo := repository.NewRepository(e.db, nil)
			profiles := service.NewProfileService(repo, e.logger)
			auth := service.NewAuthService(e.cfg, repo, jwt.NewManager(&e.cfg.Auth), nil, profiles, e.logger)

			profile, err := auth.ProvisionRegisseur(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "régisseur créé: profile_id=%s user_id=%s\n", profile.ID, profile.UserID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "email de connexion")
	create.Flags().StringVar(&in.Password, "password", "", "mot de passe (8 caractères min.)")
	create.Flags().StringVar(&in.Nom, "nom", "", "nom")
	create.Flags().StringVar(&in.Prenom, "prenom", "", "prénom")
	create.Flags().StringVar(&in.Organisation, "organisation", "", "organisation (facultatif)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")
	_ = create.MarkFlagRequired("nom")
	_ = create.MarkFlagRequired("prenom")
	cmd.AddCommand(create)

	return cmd
}
