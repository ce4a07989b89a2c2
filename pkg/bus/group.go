package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// EnsureGroup creates the consumer group (and the stream) if it does not exist yet.
// The group starts at "0" so entries published while no writer existed are still delivered.
func EnsureGroup(ctx context.Context, client *redis.Client, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", group, stream, err)
	}
	return nil
}
