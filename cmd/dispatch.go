package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veeo/driver-dispatch/config"
	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/driver"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/core/notification"
	"github.com/veeo/driver-dispatch/infra/logger"
	"github.com/veeo/driver-dispatch/infra/notify"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run a test ride through the engine against a synthetic fleet",
	RunE:  dispatchRide,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchRide(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("dispatch-command")
	fleet := driver.NewManager()
	fleet.Upsert(model.Driver{
		ID:          "test-driver",
		FirstName:   "Test",
		LastName:    "Driver",
		Status:      model.StatusAvailable,
		VehicleType: "standard",
		Rating:      4.5,
		IsActive:    true,
		Location:    &model.Location{Lat: 48.5839, Lng: 7.7455, UpdatedAt: time.Now()},
	})

	notifier := notification.NewService(notification.WithLogger(logg))
	notifier.RegisterProvider(model.ChannelPush, notify.NewDevLogProvider(model.ChannelPush, logg))

	engine, err := dispatch.NewEngine(cfg.Dispatch, fleet, notifier, dispatch.Options{Logger: logg})
	if err != nil {
		return fmt.Errorf("dispatch engine: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := engine.SubmitRideRequest(ctx, model.RideRequest{
		ID:          "test-ride",
		CustomerID:  "test-customer",
		VehicleType: "standard",
		Pickup:      model.Stop{Address: "1 Gare Centrale", Lat: 48.5850, Lng: 7.7350},
		Dropoff:     model.Stop{Address: "12 Place Kleber", Lat: 48.5833, Lng: 7.7458},
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
