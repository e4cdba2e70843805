// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package source resolves file locators (local paths, http(s), s3, gs
// URLs) into byte-range-fetchable handles. Every backend supports random
// range reads; streaming readers are layered on top by the callers.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Handle is a read-only, randomly addressable view of a located file.
// ReadAt must be safe for concurrent use; all backends bind the context
// passed to Resolve for the lifetime of the handle.
type Handle interface {
	io.ReaderAt

	// Size returns the total byte size of the object.
	Size() int64

	// Name returns a human-readable name for the object (path or URL).
	Name() string

	Close() error
}

// Resolve parses a locator and opens a handle for it.
//
// Accepted forms: bare or relative local paths, file:// URLs,
// http(s):// URLs (the server must honor Range requests), s3://bucket/key,
// and gs://bucket/key (served through the S3 protocol against the GCS
// interoperability endpoint).
func Resolve(ctx context.Context, locator string) (Handle, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Not a URL (or a Windows-style drive letter): treat as local path.
		return openLocal(locator)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		return openLocal(path)
	case "http", "https":
		return openHTTP(ctx, locator)
	case "s3":
		return openS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"), "")
	case "gs":
		return openS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"), gcsEndpoint)
	default:
		return nil, fmt.Errorf("unsupported locator scheme %q in %s", u.Scheme, locator)
	}
}
