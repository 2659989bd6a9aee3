package main

import (
	"github.com/spf13/cobra"
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Show or change the author persona",
}

var personaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active persona",
	RunE:  runPersonaShow,
}

var personaSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the active persona",
	Long:  "Sets the professional every generated text is signed by. Name, specialty and license are required.",
	RunE:  runPersonaSet,
}

var (
	personaName      string
	personaSpecialty string
	personaLicense   string
	personaTone      string
	personaBio       string
)

func init() {
	personaSetCmd.Flags().StringVar(&personaName, "name", "", "Professional name")
	personaSetCmd.Flags().StringVar(&personaSpecialty, "specialty", "", "Specialty")
	personaSetCmd.Flags().StringVar(&personaLicense, "license", "", "Council registration, e.g. CRM 123456")
	personaSetCmd.Flags().StringVar(&personaTone, "tone", "", "Default tone")
	personaSetCmd.Flags().StringVar(&personaBio, "bio", "", "Short style bio")

	personaCmd.AddCommand(personaShowCmd, personaSetCmd)
	rootCmd.AddCommand(personaCmd)
}

func runPersonaShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	return writeJSON(cmd.OutOrStdout(), "", a.studio.Persona())
}

func runPersonaSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	// Unset flags keep the current values.
	p := a.studio.Persona()
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = personaName
	}
	if flags.Changed("specialty") {
		p.Specialty = personaSpecialty
	}
	if flags.Changed("license") {
		p.License = personaLicense
	}
	if flags.Changed("tone") {
		p.DefaultTone = personaTone
	}
	if flags.Changed("bio") {
		p.StyleBio = personaBio
	}
	if err := a.studio.SetPersona(ctx, p); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), "", p)
}
