package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// HTTPReader reads documents from an export endpoint.
//
// exportURL and metadataURL are templates: {id} is replaced by the escaped
// document id and {format} by the export format. Without a metadata URL the
// export URL is probed with HEAD and its validators hashed instead.
type HTTPReader struct {
	fetcher     *Fetcher
	exportURL   string
	metadataURL string
}

// NewHTTPReader creates an HTTPReader.
func NewHTTPReader(fetcher *Fetcher, exportURL, metadataURL string) *HTTPReader {
	return &HTTPReader{fetcher: fetcher, exportURL: exportURL, metadataURL: metadataURL}
}

func expand(tmpl, id string, format Format) string {
	return strings.NewReplacer("{id}", url.PathEscape(id), "{format}", string(format)).Replace(tmpl)
}

// metadataDoc is the JSON shape served by the metadata endpoint.
type metadataDoc struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	ModifiedTime string `json:"modifiedTime"`
	MD5Checksum  string `json:"md5Checksum"`
}

// MetadataHash combines the change indicators of a document into one hash.
func MetadataHash(version, modified, checksum string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "v:%s|d:%s|c:%s", version, modified, checksum))
	return hex.EncodeToString(sum[:])
}

// Metadata implements Reader.
func (r *HTTPReader) Metadata(ctx context.Context, id string) (Metadata, error) {
	if r.metadataURL == "" {
		resp, err := r.fetcher.Head(ctx, expand(r.exportURL, id, FormatHTML))
		if err != nil {
			return Metadata{}, err
		}
		h := resp.Header
		return Metadata{
			Title:       dispositionTitle(h.Get("Content-Disposition")),
			ContentHash: MetadataHash(h.Get("ETag"), h.Get("Last-Modified"), h.Get("Content-Length")),
		}, nil
	}

	u := expand(r.metadataURL, id, FormatHTML)
	resp, err := r.fetcher.Get(ctx, u)
	if err != nil {
		return Metadata{}, err
	}
	var doc metadataDoc
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return Metadata{}, ferrors.FetchError("decode document metadata").
			WithCause(err).
			WithContext("url", u).
			Build()
	}
	return Metadata{
		Title:       doc.Name,
		ContentHash: MetadataHash(doc.Version, doc.ModifiedTime, doc.MD5Checksum),
	}, nil
}

// Content implements Reader.
func (r *HTTPReader) Content(ctx context.Context, id string, format Format) ([]byte, error) {
	resp, err := r.fetcher.Get(ctx, expand(r.exportURL, id, format))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// dispositionTitle extracts the file name of a Content-Disposition header,
// without extension.
func dispositionTitle(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}
