package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"s3mirror/internal/flags"
	"s3mirror/pkg/storage"
)

type objectFlags struct {
	content  string
	metadata string
	prefix   string
	partSize int64
}

func newObjectCmd(app *appContainer) *cobra.Command {
	cmdFlags := objectFlags{}

	objectCmd := &cobra.Command{
		Use:   "object",
		Short: "Manage objects",
		Long:  `The object command allows you to upload, download, read, inspect, delete, and list objects.`,
	}

	uploadCmd := &cobra.Command{
		Use:   "upload [bucket] [key] [source-file]",
		Short: "Upload a file or inline content",
		Long: `Uploads a local file to the given bucket and key and mirrors it locally.
With --content, inline text is uploaded instead and no source file is read.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName, key := args[0], args[1]

			metadata, err := parseMetadata(cmdFlags.metadata)
			if err != nil {
				return err
			}

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			var result storage.Object
			switch {
			case cmdFlags.content != "":
				if len(args) == 3 {
					return fmt.Errorf("--content and a source file are mutually exclusive")
				}
				r, err := svc.UploadText(cmd.Context(), bucketName, key, cmdFlags.content, metadata, app.UserID)
				if err != nil {
					return fmt.Errorf("error uploading to %s/%s: %w", bucketName, key, err)
				}
				result = storage.Object{Key: r.Key, Bucket: r.Bucket, Size: r.Size}
			case len(args) == 3:
				r, err := svc.UploadFile(cmd.Context(), bucketName, key, args[2], metadata, app.UserID)
				if err != nil {
					return fmt.Errorf("error uploading to %s/%s: %w", bucketName, key, err)
				}
				result = storage.Object{Key: r.Key, Bucket: r.Bucket, Size: r.Size}
			default:
				return fmt.Errorf("either a source file or --content is required")
			}

			fmt.Printf("Uploaded %s/%s (%s).\n", result.Bucket, result.Key, storage.FormatBytes(result.Size))
			return nil
		},
	}
	uploadCmd.Flags().StringVar(&cmdFlags.content, flags.Content, "", "Inline text content to upload instead of a source file")
	uploadCmd.Flags().StringVar(&cmdFlags.metadata, flags.Metadata, "", `Object metadata as a JSON object, e.g. '{"author":"jane"}'`)

	uploadLargeCmd := &cobra.Command{
		Use:   "upload-large [bucket] [key] [source-file]",
		Short: "Upload a file via multipart",
		Long:  `Uploads a local file using multipart upload with the given part size, then mirrors it locally.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName, key, sourcePath := args[0], args[1], args[2]

			metadata, err := parseMetadata(cmdFlags.metadata)
			if err != nil {
				return err
			}

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.UploadLargeFile(cmd.Context(), bucketName, key, sourcePath, cmdFlags.partSize, metadata, app.UserID)
			if err != nil {
				return fmt.Errorf("error uploading to %s/%s: %w", bucketName, key, err)
			}

			fmt.Printf("Uploaded %s/%s (%s, multipart).\n", result.Bucket, result.Key, storage.FormatBytes(result.Size))
			return nil
		},
	}
	uploadLargeCmd.Flags().Int64Var(&cmdFlags.partSize, flags.PartSize, 0, "Multipart part size in bytes (floored at the backend minimum)")
	uploadLargeCmd.Flags().StringVar(&cmdFlags.metadata, flags.Metadata, "", `Object metadata as a JSON object, e.g. '{"author":"jane"}'`)

	downloadCmd := &cobra.Command{
		Use:   "download [bucket] [key] [dest-file]",
		Short: "Download an object to a local file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName, key, destPath := args[0], args[1], args[2]

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.DownloadFile(cmd.Context(), bucketName, key, destPath, app.UserID)
			if err != nil {
				return fmt.Errorf("error downloading %s/%s: %w", bucketName, key, err)
			}

			fmt.Printf("Downloaded %s/%s to %s (%s).\n", bucketName, key, result.Path, storage.FormatBytes(result.Size))
			return nil
		},
	}

	readCmd := &cobra.Command{
		Use:   "read [bucket] [key]",
		Short: "Print an object's text content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName, key := args[0], args[1]

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			content, err := svc.ReadFile(cmd.Context(), bucketName, key, app.UserID)
			if err != nil {
				return fmt.Errorf("error reading %s/%s: %w", bucketName, key, err)
			}

			fmt.Print(content)
			return nil
		},
	}

	statCmd := &cobra.Command{
		Use:   "stat [bucket] [key]",
		Short: "Show an object's metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName, key := args[0], args[1]

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			metadata, err := svc.ObjectMetadata(cmd.Context(), bucketName, key, app.UserID)
			if err != nil {
				return fmt.Errorf("error inspecting %s/%s: %w", bucketName, key, err)
			}

			fmt.Println(app.Formatter.FormatMetadata(bucketName, key, metadata))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [bucket] [key]",
		Short: "Delete an object",
		Long:  `Deletes an object from the backend and sweeps its mirrored copies. Deleting a key that does not exist is reported as already absent.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName, key := args[0], args[1]

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.DeleteFile(cmd.Context(), bucketName, key, app.UserID)
			if err != nil {
				return fmt.Errorf("error deleting %s/%s: %w", bucketName, key, err)
			}

			if result.AlreadyAbsent {
				fmt.Printf("Object %s/%s was already absent.\n", bucketName, key)
			} else {
				fmt.Printf("Deleted %s/%s.\n", bucketName, key)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [bucket]",
		Short: "List object keys in a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucketName := args[0]

			svc, err := app.StorageService(cmd.Context())
			if err != nil {
				return err
			}

			count := 0
			for key, err := range svc.ListFiles(cmd.Context(), bucketName, cmdFlags.prefix) {
				if err != nil {
					return fmt.Errorf("error listing bucket '%s': %w", bucketName, err)
				}
				fmt.Println(key)
				count++
			}
			if count == 0 {
				fmt.Println("No objects found.")
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&cmdFlags.prefix, flags.Prefix, "", "Only list keys starting with this prefix")

	objectCmd.AddCommand(uploadCmd, uploadLargeCmd, downloadCmd, readCmd, statCmd, deleteCmd, listCmd)
	return objectCmd
}

// parseMetadata decodes the --metadata flag, a JSON object of string pairs.
func parseMetadata(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	metadata := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("invalid --metadata value (expected a JSON object of strings): %w", err)
	}
	return metadata, nil
}
