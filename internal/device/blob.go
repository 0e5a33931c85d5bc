package device

import (
	"context"
	"fmt"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// UploadBlob stores a file as a new datapoint of a file property.
//
// Steps:
//  1. Create an empty datapoint; the cloud answers with the datapoint
//     location and a pre-signed upload URL
//  2. PUT the file to the upload URL, reporting progress
//  3. Mark the datapoint closed at its location
//
// A cancellation between steps stops the upload. An interrupted upload
// leaves an open datapoint behind; it is not deleted.
func (m *Manager) UploadBlob(ctx context.Context, dsn, property, path string, progress cloud.ProgressFunc) (*Datapoint, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	if property == "" || path == "" {
		return nil, cloud.InvalidArgument("property name and file path are required")
	}

	var dp *Datapoint
	err := cloud.Chain(ctx,
		cloud.Step{Name: "create blob datapoint", Run: func(ctx context.Context) error {
			u, err := m.url("%s/datapoints.json", propertyPath(dsn, property))
			if err != nil {
				return err
			}
			var resp datapointWrapper
			if err := m.client.Post(ctx, u, map[string]any{"datapoint": struct{}{}}, &resp); err != nil {
				return err
			}
			if resp.Datapoint == nil || resp.Datapoint.File == "" || resp.Datapoint.Location() == "" {
				return &cloud.Error{Kind: cloud.KindJSON, Message: "blob datapoint has no file or location"}
			}
			dp = resp.Datapoint
			return nil
		}},
		cloud.Step{Name: "upload file", Run: func(ctx context.Context) error {
			return m.client.Upload(ctx, dp.File, path, progress)
		}},
		cloud.Step{Name: "close blob datapoint", Run: func(ctx context.Context) error {
			body := map[string]any{"datapoint": map[string]bool{"closed": true}}
			return m.client.Put(ctx, dp.Location(), body, nil)
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("uploading blob to %s/%s: %w", dsn, property, err)
	}
	dp.Closed = true
	m.logger.Info("blob uploaded", "dsn", dsn, "property", property, "path", path)
	return dp, nil
}

// DownloadBlob saves the file behind a blob datapoint to path.
//
// Steps:
//  1. GET the datapoint location for a pre-signed download URL
//  2. Stream the file to path, reporting progress
//  3. When markFetched is set, tell the cloud the file was fetched
func (m *Manager) DownloadBlob(ctx context.Context, dp *Datapoint, path string, progress cloud.ProgressFunc, markFetched bool) error {
	if dp == nil || dp.Location() == "" {
		return cloud.InvalidArgument("blob datapoint has no location")
	}
	if path == "" {
		return cloud.InvalidArgument("file path is required")
	}
	location := dp.Location()

	var file string
	steps := []cloud.Step{
		{Name: "fetch blob location", Run: func(ctx context.Context) error {
			var resp datapointWrapper
			if err := m.client.Get(ctx, location, nil, &resp); err != nil {
				return err
			}
			if resp.Datapoint == nil || resp.Datapoint.File == "" {
				return &cloud.Error{Kind: cloud.KindJSON, Message: "blob location has no file URL"}
			}
			file = resp.Datapoint.File
			return nil
		}},
		{Name: "download file", Run: func(ctx context.Context) error {
			return m.client.Download(ctx, file, path, progress)
		}},
	}
	if markFetched {
		steps = append(steps, cloud.Step{Name: "mark blob fetched", Run: func(ctx context.Context) error {
			body := map[string]any{"datapoint": map[string]string{"fetched": "true"}}
			return m.client.Put(ctx, location, body, nil)
		}})
	}

	if err := cloud.Chain(ctx, steps...); err != nil {
		return fmt.Errorf("downloading blob %s: %w", dp.ID, err)
	}
	m.logger.Info("blob downloaded", "id", dp.ID, "path", path)
	return nil
}
