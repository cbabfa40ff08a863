package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured is returned by Disabled for every upload.
var ErrNotConfigured = errors.New("file storage is not configured")

// Disabled stands in when no bucket is configured. Uploads fail, deletes
// are no-ops and keys render unchanged.
type Disabled struct{}

func (Disabled) Put(context.Context, string, io.Reader, int64, string) error { return ErrNotConfigured }

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) URL(key string) string { return key }
