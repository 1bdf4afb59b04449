package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type fetchedPhoto struct {
	data      []byte
	imageType string
}

// prefetch downloads every remote photo the document references that the
// session has not seen yet. A failed download is cached as a miss so the
// card falls back to the placeholder; only cancellation aborts the render.
func (s *pdfSession) prefetch(ctx context.Context, doc Document) error {
	urls := s.pendingURLs(doc)
	if len(urls) == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchLimit)
	for _, url := range urls {
		g.Go(func() error {
			img, err := s.fetch(gctx, url)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				zerolog.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("photo unavailable, using placeholder")
			}
			s.mu.Lock()
			if s.images != nil {
				s.images[url] = img
			}
			s.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *pdfSession) pendingURLs(doc Document) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	var urls []string
	for _, block := range doc.Blocks {
		for _, el := range block.Elements {
			if el.Kind != ImageElement || !isRemote(el.ImageURL) || seen[el.ImageURL] {
				continue
			}
			seen[el.ImageURL] = true
			if _, cached := s.images[el.ImageURL]; cached {
				continue
			}
			urls = append(urls, el.ImageURL)
		}
	}
	return urls
}

func (s *pdfSession) fetch(ctx context.Context, url string) (*fetchedPhoto, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo fetch returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", s.maxBytes)
	}

	imageType := pdfImageType(data)
	if imageType == "" {
		return nil, fmt.Errorf("unsupported photo type %s", mimetype.Detect(data).String())
	}
	return &fetchedPhoto{data: data, imageType: imageType}, nil
}

// pdfImageType maps sniffed content to the gofpdf image type name.
func pdfImageType(data []byte) string {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is("image/jpeg"):
		return "JPG"
	case detected.Is("image/png"):
		return "PNG"
	}
	return ""
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")
}
