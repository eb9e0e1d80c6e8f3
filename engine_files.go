package sikad

import (
	"context"
	"io"

	"github.com/MrEthical07/sikad/api"
)

// Files lists the published guide documents. The token is sent when there is one.
func (e *Engine) Files(ctx context.Context) ([]api.FileInfo, error) {
	return optional(ctx, e, "list files", e.client.GetFiles)
}

// DownloadFile streams file id into w and returns the number of bytes written.
func (e *Engine) DownloadFile(ctx context.Context, id int64, w io.Writer) (int64, error) {
	return authed(ctx, e, "download file", func(ctx context.Context, token string) api.Response[int64] {
		return e.client.DownloadFile(ctx, token, id, w)
	})
}

// FileDownloadURL is the link the app opens in a browser.
func (e *Engine) FileDownloadURL(id int64) string {
	return e.client.FileDownloadURL(id)
}
