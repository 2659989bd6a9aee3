package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/observability"
	"github.com/jonathan/clinic-studio/internal/pipeline"
	"github.com/jonathan/clinic-studio/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the current draft to the social account",
	Long: `Uploads the draft image, creates a media container with the caption and hashtags,
and publishes it. Requires stored credentials (see "publish credentials").`,
	RunE: runPublish,
}

var publishCredentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Store the publishing credentials",
	Long:  "Seals the access token, account id and image host key with STUDIO_CREDENTIAL_KEY and stores them.",
	RunE:  runPublishCredentials,
}

var (
	credAccessToken  string
	credAccountID    string
	credImageHostKey string
)

func init() {
	publishCredentialsCmd.Flags().StringVar(&credAccessToken, "access-token", "", "Graph API access token (required)")
	publishCredentialsCmd.Flags().StringVar(&credAccountID, "account-id", "", "Business account id (required)")
	publishCredentialsCmd.Flags().StringVar(&credImageHostKey, "image-host-key", "", "Image host API key")

	if err := publishCredentialsCmd.MarkFlagRequired("access-token"); err != nil {
		panic(fmt.Sprintf("failed to mark access-token flag as required: %v", err))
	}
	if err := publishCredentialsCmd.MarkFlagRequired("account-id"); err != nil {
		panic(fmt.Sprintf("failed to mark account-id flag as required: %v", err))
	}

	publishCmd.AddCommand(publishCredentialsCmd)
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
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

	attempt, err := a.studio.Publish(ctx, pipeline.PublishOptions{OnProgress: printProgress(cmd)})
	if err != nil {
		return err
	}
	res := attempt.Result()
	observability.NewPrinter(cmd.ErrOrStderr()).PrintPublishResult(res)
	if err := writeJSON(cmd.OutOrStdout(), "", res); err != nil {
		return err
	}
	if attempt.Status != publish.StatusPublished {
		return fmt.Errorf("publish ended in %s", attempt.Status)
	}
	return nil
}

func runPublishCredentials(cmd *cobra.Command, _ []string) error {
	creds := publish.Credentials{
		ImageHostKey: credImageHostKey,
		AccessToken:  credAccessToken,
		AccountID:    credAccountID,
	}
	if !creds.Configured() {
		return fmt.Errorf("access token and account id must not be blank")
	}

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

	if err := a.studio.SaveCredentials(ctx, creds); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved")
	return nil
}
