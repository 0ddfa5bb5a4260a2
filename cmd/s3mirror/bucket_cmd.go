package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"s3mirror/internal/flags"
	"s3mirror/internal/mode"
	"s3mirror/internal/service"
	"s3mirror/internal/ui/prompt"
)

type bucketFlags struct {
	force bool
	local bool
}

func newBucketCmd(app *appContainer) *cobra.Command {
	cmdFlags := bucketFlags{}

	bucketCmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage storage buckets",
		Long:  `The bucket command allows you to create, list, and delete storage buckets on the active backend.`,
	}

	createCmd := &cobra.Command{
		Use:   "create [bucket-name]",
		Short: "Create a new bucket",
		Long:  `Creates a bucket on the active backend. Creating a bucket that already exists and is owned by you is reported as success.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName := args[0]

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.CreateBucket(cmd.Context(), bucketName, app.UserID)
			if err != nil {
				return fmt.Errorf("error creating bucket '%s': %w", bucketName, err)
			}

			if result.AlreadyExisted {
				fmt.Printf("Bucket '%s' already exists.\n", bucketName)
			} else {
				fmt.Printf("Bucket '%s' created (%s mode).\n", bucketName, svc.Mode())
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List buckets",
		Long:  `Lists all buckets visible on the active backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			buckets, err := svc.ListBuckets(cmd.Context())
			if err != nil {
				return err
			}

			if len(buckets) == 0 {
				fmt.Println("No buckets found.")
				return nil
			}
			fmt.Println(app.Formatter.FormatBucketList(buckets))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [bucket-name]",
		Short: "Empty and delete a bucket",
		Long: `Empties and deletes a bucket. Deletion only ever runs against the mock
backend; in real mode the bucket is left in place and reported as skipped.
Use --local to also remove the bucket's mirrored files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName := args[0]

			prompter := app.Prompter
			if cmdFlags.force {
				prompter = prompt.AutoApprove{}
			}
			confirmed, err := prompter.ConfirmDestruction(
				fmt.Sprintf("This will permanently delete bucket '%s' and all objects in it.", bucketName),
				bucketName)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Cleanup(cmd.Context(), bucketName, service.CleanupOptions{
				RemoveLocal:  cmdFlags.local,
				RemoveBucket: true,
			})
			if err != nil {
				return fmt.Errorf("error deleting bucket '%s': %w", bucketName, err)
			}

			if result.BucketSkipped {
				fmt.Printf("Bucket '%s' was not deleted: bucket deletion is disabled outside %s mode.\n", bucketName, mode.Mock)
			} else {
				fmt.Printf("Bucket '%s' deleted (%d objects removed).\n", bucketName, result.ObjectsDeleted)
			}
			if result.LocalRemoved {
				fmt.Println("Mirrored files removed.")
			}
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&cmdFlags.force, flags.Force, flags.ForceShort, false, "Skip the confirmation prompt")
	deleteCmd.Flags().BoolVar(&cmdFlags.local, flags.Local, false, "Also remove the bucket's mirrored files")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup [bucket-name]",
		Short: "Remove mirrored files",
		Long: `Removes mirrored files from every mode's mirror tree. With a bucket name
only that bucket's subtree is removed; without one the whole mirror root
goes. The remote backend is not touched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bucketName string
			if len(args) > 0 {
				bucketName = args[0]
			}

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			if _, err := svc.Cleanup(cmd.Context(), bucketName, service.CleanupOptions{RemoveLocal: true}); err != nil {
				return err
			}

			if bucketName == "" {
				fmt.Println("Mirror root removed.")
			} else {
				fmt.Printf("Mirrored files for bucket '%s' removed.\n", bucketName)
			}
			return nil
		},
	}

	bucketCmd.AddCommand(createCmd, listCmd, deleteCmd, cleanupCmd)
	return bucketCmd
}
