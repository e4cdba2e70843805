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

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

type httpHandle struct {
	ctx    context.Context
	client *http.Client
	url    string
	size   int64
}

func openHTTP(ctx context.Context, rawURL string) (Handle, error) {
	h := &httpHandle{ctx: ctx, client: http.DefaultClient, url: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build HEAD request for %s: %w", rawURL, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HEAD %s: %w", rawURL, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusOK && resp.ContentLength >= 0 {
		h.size = resp.ContentLength
		return h, nil
	}

	// Some servers refuse HEAD; fall back to a one-byte ranged GET and
	// parse the total size out of Content-Range.
	size, err := h.sizeFromRangedGet()
	if err != nil {
		return nil, err
	}
	h.size = size
	return h, nil
}

func (h *httpHandle) sizeFromRangedGet() (int64, error) {
	req, err := http.NewRequestWithContext(h.ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build GET request for %s: %w", h.url, err)
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", h.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("server for %s does not support range requests (status %d)", h.url, resp.StatusCode)
	}
	// Content-Range: bytes 0-0/12345
	cr := resp.Header.Get("Content-Range")
	idx := strings.LastIndexByte(cr, '/')
	if idx < 0 {
		return 0, fmt.Errorf("missing Content-Range total in response for %s", h.url)
	}
	size, err := strconv.ParseInt(cr[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range %q for %s: %w", cr, h.url, err)
	}
	return size, nil
}

func (h *httpHandle) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= h.size {
		return 0, io.EOF
	}

	req, err := http.NewRequestWithContext(h.ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build range request for %s: %w", h.url, err)
	}
	end := off + int64(len(p)) - 1
	if end >= h.size {
		end = h.size - 1
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s range %d-%d: %w", h.url, off, end, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("range GET %s returned status %d", h.url, resp.StatusCode)
	}

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if err != nil {
		return n, fmt.Errorf("read range body from %s: %w", h.url, err)
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (h *httpHandle) Size() int64 { return h.size }

func (h *httpHandle) Name() string { return h.url }

func (h *httpHandle) Close() error { return nil }
