package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	headerETag          = "ETag"
	headerIfNoneMatch   = "If-None-Match"
	contentLengthHeader = "Content-Length"
)

// ETag returns a strong entity tag for a response body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// ConditionalGET tags successful GET responses and answers 304 Not Modified when
// the client already holds the current representation.
func ConditionalGET() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)

				return
			}

			buffered := &bufferedWriter{header: w.Header(), statusCode: http.StatusOK}
			next.ServeHTTP(buffered, r)

			if buffered.statusCode != http.StatusOK {
				w.WriteHeader(buffered.statusCode)
				_, _ = w.Write(buffered.body.Bytes())

				return
			}

			etag := ETag(buffered.body.Bytes())
			w.Header().Set(headerETag, etag)

			if etagMatches(r.Header.Get(headerIfNoneMatch), etag) {
				w.Header().Del(contentLengthHeader)
				w.WriteHeader(http.StatusNotModified)

				return
			}

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(buffered.body.Bytes())
		})
	}
}

// bufferedWriter holds the status and body back until the tag is known. Headers
// go straight to the real writer.
type bufferedWriter struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}

	b.statusCode = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)

	return b.body.Write(p)
}

func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}

	if strings.TrimSpace(ifNoneMatch) == "*" {
		return true
	}

	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}

	return false
}
