package aws

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"s3mirror/internal/config"
	"s3mirror/pkg/storage"
)

// Credentials presented to the local emulator. Moto and minio accept any
// static pair.
const (
	mockAccessKeyID     = "s3mirror-test"
	mockSecretAccessKey = "s3mirror-test"
)

// NewMockClient builds an S3 client bound to the local emulator endpoint.
// Construction only prepares connection parameters; no network traffic
// happens until the first operation.
func NewMockClient(cfg *config.Config, logger *slog.Logger) *awss3.Client {
	logger.Debug("Configuring mock S3 client", "endpoint", cfg.EndpointURL, "region", cfg.Region)

	return awss3.New(awss3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.EndpointURL),
		Credentials:  credentials.NewStaticCredentialsProvider(mockAccessKeyID, mockSecretAccessKey, ""),
		// Emulators are typically addressed as http://host:port/bucket/...
		UsePathStyle: true,
	})
}

// NewRealClient builds an S3 client bound to AWS proper. It fails with
// storage.ErrConfiguration when no credential source is resolvable;
// resolution order is explicit pair, then environment, then profile file.
func NewRealClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*awss3.Client, error) {
	awsCfg, err := loadRealConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("Configured real S3 client", "region", awsCfg.Region, "profile", cfg.Profile)
	return awss3.NewFromConfig(awsCfg), nil
}

// NewIdentityProbe builds the STS client the mode auto-detector calls
// GetCallerIdentity on. Same credential rules as the real backend.
func NewIdentityProbe(ctx context.Context, cfg *config.Config) (*sts.Client, error) {
	awsCfg, err := loadRealConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(awsCfg), nil
}

func loadRealConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if !CredentialsResolvable(cfg) {
		return aws.Config{}, fmt.Errorf("%w: no AWS credentials found in flags, environment, or profile files", storage.ErrConfiguration)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	case cfg.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: loading AWS configuration: %v", storage.ErrConfiguration, err)
	}
	return awsCfg, nil
}

// CredentialsResolvable checks credential sources statically, without any
// network traffic. Order: explicit pair, environment, shared profile files.
func CredentialsResolvable(cfg *config.Config) bool {
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return true
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" && os.Getenv("AWS_SECRET_ACCESS_KEY") != "" {
		return true
	}
	if _, err := os.Stat(awsconfig.DefaultSharedCredentialsFilename()); err == nil {
		return true
	}
	if _, err := os.Stat(awsconfig.DefaultSharedConfigFilename()); err == nil {
		return true
	}
	return false
}
