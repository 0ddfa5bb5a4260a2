package mode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	"s3mirror/pkg/storage"
)

// IdentityAPI is the slice of the STS API used to probe whether real
// credentials are usable.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Detect probes caller identity against the real backend and picks a mode.
// Rejected or unusable credentials select Mock. Any other failure (network,
// throttling) is returned as storage.ErrProbe instead of silently choosing a
// mode, so transient outages are not mistaken for missing credentials.
func Detect(ctx context.Context, probe IdentityAPI, logger *slog.Logger) (Mode, error) {
	out, err := probe.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err == nil {
		logger.Debug("Identity probe succeeded", "account", deref(out.Account))
		return Real, nil
	}

	if storage.IsAuthError(err) {
		logger.Debug("Identity probe rejected credentials, falling back to mock mode", "error", err)
		return Mock, nil
	}

	return "", fmt.Errorf("%w: %v", storage.ErrProbe, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
