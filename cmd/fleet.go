package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veeo/driver-dispatch/config"
	"github.com/veeo/driver-dispatch/infra/directory"
	"github.com/veeo/driver-dispatch/infra/logger"
)

var (
	fleetLat    float64
	fleetLng    float64
	fleetRadius float64
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List driver ids near a point from the Redis directory",
	RunE:  runFleetLs,
}

func init() {
	fleetLsCmd.Flags().Float64Var(&fleetLat, "lat", 48.5839, "search center latitude")
	fleetLsCmd.Flags().Float64Var(&fleetLng, "lng", 7.7455, "search center longitude")
	fleetLsCmd.Flags().Float64Var(&fleetRadius, "radius", 10, "search radius in km")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir := directory.NewRedisDirectory(cfg.Directory.Addr, cfg.Directory.Password, cfg.Directory.Key, logger.New("fleet-ls"))
	defer func() {
		if err := dir.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error while closing directory: %v\n", err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ids, err := dir.Nearby(ctx, fleetLat, fleetLng, fleetRadius, 0)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
