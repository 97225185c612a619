// Package wgquick shells out to wg-quick to bring the tunnel up and
// down when the caller asks routeguard to manage it.
package wgquick

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/routeguard-io/routeguard/pkg/logger"
)

const commandTimeout = 15 * time.Second

// Up runs `wg-quick up`. An interface that is already up is not an
// error.
func Up(ctx context.Context, configPath string) error {
	out, err := run(ctx, "up", configPath)
	if err != nil {
		if strings.Contains(out, "already exists") {
			logger.Log.Debugf("wg-quick: %s already up", configPath)
			return nil
		}
		return fmt.Errorf("wg-quick up %s: %w: %s", configPath, err, strings.TrimSpace(out))
	}
	return nil
}

// Down runs `wg-quick down`. A missing interface is not an error.
func Down(ctx context.Context, configPath string) error {
	out, err := run(ctx, "down", configPath)
	if err != nil {
		if strings.Contains(out, "is not a WireGuard interface") || strings.Contains(out, "does not exist") {
			logger.Log.Debugf("wg-quick: %s already down", configPath)
			return nil
		}
		return fmt.Errorf("wg-quick down %s: %w: %s", configPath, err, strings.TrimSpace(out))
	}
	return nil
}

func run(ctx context.Context, verb, configPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wg-quick", verb, configPath)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
