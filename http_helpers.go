package main

import (
	"io"

	http "github.com/bogdanfinn/fhttp"
)

// redirectStatuses are the codes treated as a portal hijack. 308 is deliberately absent.
var redirectStatuses = map[int]bool{
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
}

func isRedirect(statusCode int) bool {
	return redirectStatuses[statusCode]
}

// readResponseBody decompresses and reads the full response body.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}

// drainBody discards what is left of a body so the connection can be reused.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
