package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
)

var (
	devicesOnline bool

	datapointCount int
	datapointSince time.Duration

	downloadMarkFetched bool
)

// devicesCmd lists the devices on the account
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices on the account",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runDevices),
}

// propertiesCmd lists the properties of a device
var propertiesCmd = &cobra.Command{
	Use:   "properties <dsn> [name...]",
	Short: "Show the properties of a device",
	Args:  cobra.MinimumNArgs(1),
	RunE:  signedIn(runProperties),
}

// setCmd creates a datapoint
var setCmd = &cobra.Command{
	Use:   "set <dsn> <property> <value>",
	Short: "Set a property by creating a datapoint",
	Long: `Set a property by creating a datapoint.

The value is converted to the property's base type: booleans accept
true/false/1/0, integers and decimals are parsed, strings are sent as is.
Ack-enabled properties wait for the device to acknowledge.`,
	Args: cobra.ExactArgs(3),
	RunE: signedIn(runSet),
}

// datapointsCmd lists recent datapoints
var datapointsCmd = &cobra.Command{
	Use:   "datapoints <dsn> <property>",
	Short: "List recent datapoints of a property",
	Args:  cobra.ExactArgs(2),
	RunE:  signedIn(runDatapoints),
}

// uploadCmd uploads a file property
var uploadCmd = &cobra.Command{
	Use:   "upload <dsn> <property> <file>",
	Short: "Upload a file to a file property",
	Args:  cobra.ExactArgs(3),
	RunE:  signedIn(runUpload),
}

// downloadCmd downloads a file datapoint
var downloadCmd = &cobra.Command{
	Use:   "download <dsn> <property> <datapoint-id> <file>",
	Short: "Download the file behind a file datapoint",
	Args:  cobra.ExactArgs(4),
	RunE:  signedIn(runDownload),
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesOnline, "online", false, "only show online devices")

	datapointsCmd.Flags().IntVarP(&datapointCount, "count", "n", 20, "number of datapoints")
	datapointsCmd.Flags().DurationVar(&datapointSince, "since", 0, "only datapoints newer than this (e.g. 24h)")

	downloadCmd.Flags().BoolVar(&downloadMarkFetched, "mark-fetched", false, "tell the cloud the file was fetched")
}

func runDevices(ctx context.Context, a *app, _ []string) error {
	devices, err := a.devices.FetchDevices(ctx)
	if err != nil {
		return err
	}
	if devicesOnline {
		online := devices[:0]
		for _, d := range devices {
			if d.IsOnline() {
				online = append(online, d)
			}
		}
		devices = online
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.DSN, orDash(d.ProductName), orDash(d.Model), orDash(d.ConnectionStatus), orDash(d.LANIP)})
	}
	return a.out.print(devices, []string{"DSN", "NAME", "MODEL", "STATUS", "LAN IP"}, rows)
}

func runProperties(ctx context.Context, a *app, args []string) error {
	props, err := a.devices.FetchProperties(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(props))
	for _, p := range props {
		rows = append(rows, []string{p.Name, string(p.BaseType), orDash(string(p.Direction)), value(p.Value), orDash(p.DataUpdatedAt)})
	}
	return a.out.print(props, []string{"NAME", "TYPE", "DIRECTION", "VALUE", "UPDATED"}, rows)
}

// property fetches one property, failing when the device has no such name.
func (a *app) property(ctx context.Context, dsn, name string) (*device.Property, error) {
	props, err := a.devices.FetchProperties(ctx, dsn, name)
	if err != nil {
		return nil, err
	}
	for i := range props {
		if props[i].Name == name {
			return &props[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", device.ErrPropertyNotFound, dsn, name)
}

func runSet(ctx context.Context, a *app, args []string) error {
	dsn, name, raw := args[0], args[1], args[2]
	prop, err := a.property(ctx, dsn, name)
	if err != nil {
		return err
	}

	dp, err := a.devices.CreateDatapoint(ctx, dsn, prop, raw, nil)
	if device.IsAckTimeout(err) {
		a.out.message("warning: %s/%s did not acknowledge in time", dsn, name)
		err = nil
	}
	if err != nil {
		return err
	}
	return a.out.print(dp, []string{"ID", "VALUE", "CREATED", "ACKED"},
		[][]string{{orDash(dp.ID), value(dp.Value), orDash(dp.CreatedAt), orDash(dp.AckedAt)}})
}

func runDatapoints(ctx context.Context, a *app, args []string) error {
	var from time.Time
	if datapointSince > 0 {
		from = time.Now().Add(-datapointSince)
	}
	points, err := a.devices.FetchDatapoints(ctx, args[0], args[1], datapointCount, from, time.Time{})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(points))
	for _, dp := range points {
		rows = append(rows, []string{orDash(dp.ID), value(dp.Value), orDash(dp.CreatedAt), strconv.FormatBool(dp.Echo)})
	}
	return a.out.print(points, []string{"ID", "VALUE", "CREATED", "ECHO"}, rows)
}

func runUpload(ctx context.Context, a *app, args []string) error {
	dsn, name, path := args[0], args[1], args[2]
	dp, err := a.devices.UploadBlob(ctx, dsn, name, path, progressBar(os.Stderr, "upload"))
	if err != nil {
		return err
	}
	a.out.message("uploaded %s to %s/%s (datapoint %s)", path, dsn, name, orDash(dp.ID))
	return nil
}

func runDownload(ctx context.Context, a *app, args []string) error {
	dsn, name, id, path := args[0], args[1], args[2], args[3]
	dp, err := a.devices.FetchDatapoint(ctx, dsn, name, id)
	if err != nil {
		return err
	}
	if dp.Location() == "" {
		return cloud.InvalidArgument("datapoint %s of %s/%s is not a file", id, dsn, name)
	}
	if err := a.devices.DownloadBlob(ctx, dp, path, progressBar(os.Stderr, "download"), downloadMarkFetched); err != nil {
		return err
	}
	a.out.message("saved %s/%s datapoint %s to %s", dsn, name, id, path)
	return nil
}
