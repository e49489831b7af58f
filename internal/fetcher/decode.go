package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// readBody decompresses the body according to Content-Encoding, reads at
// most limit bytes and converts the result to UTF-8.
func readBody(resp *http.Response, limit int64, contentType string) ([]byte, error) {
	reader, closeFn, err := decompress(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	raw, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	return toUTF8(raw, contentType), nil
}

// decompress wraps r in the decoder matching encoding.
func decompress(r io.Reader, encoding string) (io.Reader, func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return r, noop, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open gzip body: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case "deflate":
		return inflate(r)
	case "br":
		return brotli.NewReader(r), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// inflate decodes an HTTP deflate body. The coding is a zlib stream, but
// some servers send raw DEFLATE, so the zlib header is checked first.
func inflate(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	hdr, err := br.Peek(2)
	if err == nil && isZlibHeader(hdr[0], hdr[1]) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to open deflate body: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	}
	fl := flate.NewReader(br)
	return fl, func() { _ = fl.Close() }, nil
}

// isZlibHeader reports whether cmf and flg form a valid zlib header
// (RFC 1950): deflate method and a check value divisible by 31.
func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// toUTF8 converts body to UTF-8 using the charset from the Content-Type
// header or the document's meta tags. Bodies that cannot be converted are
// returned unchanged; link extraction only needs ASCII-compatible markup.
func toUTF8(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || enc == nil || (!certain && utf8.Valid(body)) {
		return body
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}
